package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"verein-backend/audit"
	"verein-backend/authz"
	"verein-backend/idempotency"
	"verein-backend/middlewares"
	"verein-backend/models"
	"verein-backend/notify"
	"verein-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

type NoticeInput struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"required,max=10000"`
}

// pushRetry is the caller-level delivery policy for content mutations:
// three attempts, one second apart, stop once anything got through.
var pushRetry = utils.RetryPolicy{Attempts: 3, Delay: time.Second}

// CreateNotice publishes a club notice and best-effort notifies all members.
// Delivery failure never blocks creation; it only flips push_status.
func CreateNotice(c *fiber.Ctx) error {
	var input NoticeInput
	if err := middlewares.BindAndValidate(c, &input); err != nil {
		return err
	}

	db, schema, userID, err := tenantDB(c)
	if err != nil {
		return err
	}
	if _, err := authz.NewGorm(db).RequireRole(c.UserContext(), userID, models.AdminRoles()...); err != nil {
		return err
	}

	key, err := idemKey(c)
	if err != nil {
		return err
	}

	result, err := idempotency.NewGorm(schema).Run(c.UserContext(), key, func(ctx context.Context) (datatypes.JSON, error) {
		notice := models.Notice{
			Title:      input.Title,
			Body:       input.Body,
			AuthorID:   userID,
			PushStatus: models.PushPending,
		}
		if err := db.WithContext(ctx).Create(&notice).Error; err != nil {
			return nil, fmt.Errorf("create notice: %w", err)
		}

		status, summary := notifyClub(ctx, notify.NewGormDispatcher(db), notify.Message{
			Title: notice.Title,
			Body:  notice.Body,
			Data:  map[string]string{"notice_id": notice.Id},
		})
		notice.PushStatus = status
		if err := db.WithContext(ctx).Model(&models.Notice{}).
			Where("id = ?", notice.Id).
			Update("push_status", notice.PushStatus).Error; err != nil {
			return nil, fmt.Errorf("update push status: %w", err)
		}

		if err := audit.NewGorm(db).Write(ctx, audit.Entry{
			ActorID:    userID,
			Action:     models.AuditNoticeCreate,
			TargetType: "notice",
			TargetID:   notice.Id,
			After:      notice,
			Meta:       map[string]any{"push": summary, "idempotency_key": key},
		}); err != nil {
			return nil, err
		}

		raw, err := json.Marshal(notice)
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

// clubNotifier is satisfied by *notify.Dispatcher.
type clubNotifier interface {
	Send(ctx context.Context, target notify.Target, msg notify.Message) (notify.Summary, error)
}

// notifyClub pushes to every member under the bounded retry policy and maps
// the outcome onto a push status. Delivery trouble only degrades the status,
// it never fails the enclosing mutation.
func notifyClub(ctx context.Context, dispatcher clubNotifier, msg notify.Message) (models.PushStatus, notify.Summary) {
	var summary notify.Summary
	err := pushRetry.Do(ctx, func(attempt int) (bool, error) {
		s, err := dispatcher.Send(ctx, notify.All(), msg)
		if err != nil {
			return false, err
		}
		summary = s
		return s.Delivered(), nil
	})
	if err != nil || !summary.Delivered() {
		return models.PushFailed, summary
	}
	return models.PushSent, summary
}

func GetNotices(c *fiber.Ctx) error {
	db, _, userID, err := tenantDB(c)
	if err != nil {
		return err
	}
	if _, err := authz.NewGorm(db).RequireRole(c.UserContext(), userID,
		append(models.AdminRoles(), models.RoleMember)...); err != nil {
		return err
	}

	var notices []models.Notice
	if err := db.WithContext(c.UserContext()).Order("created_at DESC").Find(&notices).Error; err != nil {
		return err
	}
	return c.JSON(notices)
}
