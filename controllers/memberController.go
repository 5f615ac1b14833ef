package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"verein-backend/apperr"
	"verein-backend/audit"
	"verein-backend/authz"
	"verein-backend/idempotency"
	"verein-backend/middlewares"
	"verein-backend/models"
	"verein-backend/notify"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

type AddMemberInput struct {
	UserID      string `json:"user_id" validate:"required,max=128"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
}

// AddMember enrolls a platform user into the club with the base MEMBER role.
func AddMember(c *fiber.Ctx) error {
	var input AddMemberInput
	if err := middlewares.BindAndValidate(c, &input); err != nil {
		return err
	}

	db, _, userID, err := tenantDB(c)
	if err != nil {
		return err
	}
	if _, err := authz.NewGorm(db).RequireRole(c.UserContext(), userID, models.AdminRoles()...); err != nil {
		return err
	}

	var existing models.Membership
	res := db.WithContext(c.UserContext()).Where("user_id = ?", input.UserID).Limit(1).Find(&existing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return apperr.New(apperr.AlreadyExists, "user is already a member")
	}

	membership := models.Membership{
		UserID:      input.UserID,
		DisplayName: input.DisplayName,
		Role:        models.RoleMember,
	}
	if err := db.WithContext(c.UserContext()).Create(&membership).Error; err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return c.Status(fiber.StatusCreated).JSON(membership)
}

func GetMembers(c *fiber.Ctx) error {
	db, _, userID, err := tenantDB(c)
	if err != nil {
		return err
	}
	if _, err := authz.NewGorm(db).RequireRole(c.UserContext(), userID,
		append(models.AdminRoles(), models.RoleMember)...); err != nil {
		return err
	}

	var members []models.Membership
	if err := db.WithContext(c.UserContext()).Order("created_at ASC").Find(&members).Error; err != nil {
		return err
	}
	return c.JSON(members)
}

type ChangeRoleInput struct {
	Role models.Role `json:"role" validate:"required,oneof=DIRECTOR TREASURER ADMIN MEMBER"`
}

// ChangeRole reassigns a member's role. OWNER and DIRECTOR may manage roles,
// but only OWNER hands out the second-tier roles (DIRECTOR, TREASURER).
// OWNER itself is not assignable here; ownership transfer is a separate
// concern.
func ChangeRole(c *fiber.Ctx) error {
	var input ChangeRoleInput
	if err := middlewares.BindAndValidate(c, &input); err != nil {
		return err
	}

	db, schema, userID, err := tenantDB(c)
	if err != nil {
		return err
	}
	actorRole, err := authz.NewGorm(db).RequireRole(c.UserContext(), userID,
		models.RoleOwner, models.RoleDirector)
	if err != nil {
		return err
	}
	secondTier := input.Role == models.RoleDirector || input.Role == models.RoleTreasurer
	if secondTier && actorRole != models.RoleOwner {
		return apperr.WithDetails(apperr.PermissionDenied, "only the owner may assign this role",
			map[string]any{"required": models.RoleOwner, "actual": actorRole})
	}

	targetUserID := c.Params("userId")
	key, err := idemKey(c)
	if err != nil {
		return err
	}

	result, err := idempotency.NewGorm(schema).Run(c.UserContext(), key, func(ctx context.Context) (datatypes.JSON, error) {
		var membership models.Membership
		res := db.WithContext(ctx).Where("user_id = ?", targetUserID).Limit(1).Find(&membership)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, apperr.New(apperr.NotFound, "member not found")
		}
		if membership.Role == models.RoleOwner {
			return nil, apperr.New(apperr.PermissionDenied, "the owner role cannot be reassigned here")
		}

		before := membership
		if err := db.WithContext(ctx).Model(&models.Membership{}).
			Where("user_id = ?", targetUserID).
			Update("role", input.Role).Error; err != nil {
			return nil, fmt.Errorf("change role: %w", err)
		}
		membership.Role = input.Role

		if err := audit.NewGorm(db).Write(ctx, audit.Entry{
			ActorID:    userID,
			Action:     models.AuditMemberChangeRole,
			TargetType: "membership",
			TargetID:   targetUserID,
			Before:     before,
			After:      membership,
			Meta:       map[string]any{"idempotency_key": key},
		}); err != nil {
			return nil, err
		}

		// Best effort: club admins hear about role changes.
		if _, err := notify.NewGormDispatcher(db).Send(ctx, notify.Admins(), notify.Message{
			Title: "Role changed",
			Body:  fmt.Sprintf("%s is now %s.", membership.DisplayName, membership.Role),
			Data:  map[string]string{"user_id": targetUserID},
		}); err != nil {
			log.Printf("change role: admin notify failed: %v", err)
		}

		raw, err := json.Marshal(membership)
		if err != nil {
			return nil, err
		}
		return datatypes.JSON(raw), nil
	})
	if err != nil {
		return err
	}
	return sendJSON(c, fiber.StatusOK, result)
}
