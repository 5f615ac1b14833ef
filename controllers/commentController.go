package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"verein-backend/apperr"
	"verein-backend/audit"
	"verein-backend/authz"
	"verein-backend/idempotency"
	"verein-backend/middlewares"
	"verein-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CommentInput struct {
	TargetType string `json:"target_type" validate:"required,oneof=notice event"`
	TargetID   string `json:"target_id" validate:"required,max=64"`
	Body       string `json:"body" validate:"required,max=5000"`
}

func CreateComment(c *fiber.Ctx) error {
	var input CommentInput
	if err := middlewares.BindAndValidate(c, &input); err != nil {
		return err
	}

	db, _, userID, err := tenantDB(c)
	if err != nil {
		return err
	}
	if _, err := authz.NewGorm(db).RequireRole(c.UserContext(), userID,
		append(models.AdminRoles(), models.RoleMember)...); err != nil {
		return err
	}

	var parents int64
	switch input.TargetType {
	case models.CommentTargetNotice:
		err = db.WithContext(c.UserContext()).Model(&models.Notice{}).
			Where("id = ?", input.TargetID).Count(&parents).Error
	case models.CommentTargetEvent:
		err = db.WithContext(c.UserContext()).Model(&models.Event{}).
			Where("id = ?", input.TargetID).Count(&parents).Error
	}
	if err != nil {
		return err
	}
	if parents == 0 {
		return apperr.Newf(apperr.NotFound, "no %s %s to comment on", input.TargetType, input.TargetID)
	}

	comment := models.Comment{
		TargetType: input.TargetType,
		TargetID:   input.TargetID,
		AuthorID:   userID,
		Body:       input.Body,
	}
	if err := db.WithContext(c.UserContext()).Create(&comment).Error; err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

func ListComments(c *fiber.Ctx) error {
	db, _, userID, err := tenantDB(c)
	if err != nil {
		return err
	}
	if _, err := authz.NewGorm(db).RequireRole(c.UserContext(), userID,
		append(models.AdminRoles(), models.RoleMember)...); err != nil {
		return err
	}

	var comments []models.Comment
	if err := db.WithContext(c.UserContext()).
		Where("target_type = ? AND target_id = ? AND deleted = ?", c.Query("target_type"), c.Query("target_id"), false).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return err
	}
	return c.JSON(comments)
}

// commentWritePolicy is the write rule for edits and deletes: the author may
// touch their own comment, club admins may touch any.
func commentWritePolicy(comment *models.Comment, userID string, role models.Role) error {
	if comment.AuthorID != userID && role == models.RoleMember {
		return apperr.New(apperr.PermissionDenied, "not the author of this comment")
	}
	return nil
}

// loadComment fetches a live comment and applies the write policy. The coarse
// membership gate has already run, so a denial here leaks nothing to
// outsiders.
func loadComment(ctx context.Context, db *gorm.DB, userID string, role models.Role, commentID string) (*models.Comment, error) {
	var comment models.Comment
	res := db.WithContext(ctx).Where("id = ? AND deleted = ?", commentID, false).Limit(1).Find(&comment)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.New(apperr.NotFound, "comment not found")
	}
	if err := commentWritePolicy(&comment, userID, role); err != nil {
		return nil, err
	}
	return &comment, nil
}

type EditCommentInput struct {
	Body string `json:"body" validate:"required,max=5000"`
}

func EditComment(c *fiber.Ctx) error {
	var input EditCommentInput
	if err := middlewares.BindAndValidate(c, &input); err != nil {
		return err
	}

	db, schema, userID, err := tenantDB(c)
	if err != nil {
		return err
	}
	// Gate and write policy run before the idempotency claim: a denied caller
	// must not leave a record that blocks the caller who is allowed.
	role, err := authz.NewGorm(db).RequireRole(c.UserContext(), userID,
		append(models.AdminRoles(), models.RoleMember)...)
	if err != nil {
		return err
	}
	commentID := c.Params("id")
	comment, err := loadComment(c.UserContext(), db, userID, role, commentID)
	if err != nil {
		return err
	}

	key, err := idemKey(c)
	if err != nil {
		return err
	}

	result, err := idempotency.NewGorm(schema).Run(c.UserContext(), key, func(ctx context.Context) (datatypes.JSON, error) {
		before := *comment
		if err := db.WithContext(ctx).Model(&models.Comment{}).
			Where("id = ?", commentID).
			Update("body", input.Body).Error; err != nil {
			return nil, fmt.Errorf("edit comment: %w", err)
		}
		edited := before
		edited.Body = input.Body

		if err := audit.NewGorm(db).Write(ctx, audit.Entry{
			ActorID:    userID,
			Action:     models.AuditCommentEdit,
			TargetType: "comment",
			TargetID:   commentID,
			Before:     before,
			After:      edited,
			Meta:       map[string]any{"idempotency_key": key},
		}); err != nil {
			return nil, err
		}

		raw, err := json.Marshal(edited)
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

func DeleteComment(c *fiber.Ctx) error {
	db, schema, userID, err := tenantDB(c)
	if err != nil {
		return err
	}
	// Same ordering as EditComment: policy before the claim.
	role, err := authz.NewGorm(db).RequireRole(c.UserContext(), userID,
		append(models.AdminRoles(), models.RoleMember)...)
	if err != nil {
		return err
	}
	commentID := c.Params("id")
	comment, err := loadComment(c.UserContext(), db, userID, role, commentID)
	if err != nil {
		return err
	}

	key, err := idemKey(c)
	if err != nil {
		return err
	}

	result, err := idempotency.NewGorm(schema).Run(c.UserContext(), key, func(ctx context.Context) (datatypes.JSON, error) {
		now := time.Now().UTC()
		if err := db.WithContext(ctx).Model(&models.Comment{}).
			Where("id = ?", commentID).
			Updates(map[string]any{"deleted": true, "deleted_at": &now}).Error; err != nil {
			return nil, fmt.Errorf("delete comment: %w", err)
		}

		if err := audit.NewGorm(db).Write(ctx, audit.Entry{
			ActorID:    userID,
			Action:     models.AuditCommentDelete,
			TargetType: "comment",
			TargetID:   commentID,
			Before:     comment,
			Meta:       map[string]any{"idempotency_key": key},
		}); err != nil {
			return nil, err
		}

		raw, err := json.Marshal(fiber.Map{"id": commentID, "deleted": true})
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
