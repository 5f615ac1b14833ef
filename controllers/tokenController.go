package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"verein-backend/audit"
	"verein-backend/authz"
	"verein-backend/idempotency"
	"verein-backend/middlewares"
	"verein-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

type RegisterTokenInput struct {
	Token    string `json:"token" validate:"required,max=255"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

// RegisterToken stores a device push token for the caller. Re-registering an
// existing token re-binds it to the caller (device handed to another user).
func RegisterToken(c *fiber.Ctx) error {
	var input RegisterTokenInput
	if err := middlewares.BindAndValidate(c, &input); err != nil {
		return err
	}

	db, schema, userID, err := tenantDB(c)
	if err != nil {
		return err
	}
	if _, err := authz.NewGorm(db).RequireRole(c.UserContext(), userID,
		append(models.AdminRoles(), models.RoleMember)...); err != nil {
		return err
	}

	// Without a caller key, registration dedupes on the token itself.
	key := strings.TrimSpace(c.Get("Idempotency-Key"))
	if key == "" {
		key = "token-register:" + userID + ":" + idempotency.KeyHash(input.Token)
	}

	result, err := idempotency.NewGorm(schema).Run(c.UserContext(), key, func(ctx context.Context) (datatypes.JSON, error) {
		token := models.DeviceToken{
			UserID:   userID,
			Token:    input.Token,
			Platform: input.Platform,
		}
		if err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "updated_at"}),
		}).Create(&token).Error; err != nil {
			return nil, fmt.Errorf("register token: %w", err)
		}

		if err := audit.NewGorm(db).Write(ctx, audit.Entry{
			ActorID:    userID,
			Action:     models.AuditTokenRegister,
			TargetType: "device_token",
			TargetID:   input.Platform,
			After:      fiber.Map{"platform": input.Platform, "token_hash": idempotency.KeyHash(input.Token)},
		}); err != nil {
			return nil, err
		}

		raw, err := json.Marshal(token)
		if err != nil {
			return nil, err
		}
		return datatypes.JSON(raw), nil
	})
	if err != nil {
		return err
	}
	return sendJSON(c, fiber.StatusCreated, result)
}
