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
	"verein-backend/notify"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

type EventInput struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=10000"`
	Location    string    `json:"location" validate:"max=200"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	VoteCloseAt time.Time `json:"vote_close_at" validate:"required"`
}

// CreateEvent publishes an event with an attendance poll. The poll stays open
// until vote_close_at; the reconciliation job closes it.
func CreateEvent(c *fiber.Ctx) error {
	var input EventInput
	if err := middlewares.BindAndValidate(c, &input); err != nil {
		return err
	}
	if !input.VoteCloseAt.After(time.Now()) {
		return apperr.New(apperr.InvalidArgument, "vote_close_at must be in the future")
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
		event := models.Event{
			Type:        models.EventTypeEvent,
			Title:       input.Title,
			Description: input.Description,
			Location:    input.Location,
			StartsAt:    input.StartsAt,
			VoteCloseAt: input.VoteCloseAt,
			AuthorID:    userID,
			PushStatus:  models.PushPending,
		}
		if err := db.WithContext(ctx).Create(&event).Error; err != nil {
			return nil, fmt.Errorf("create event: %w", err)
		}

		status, summary := notifyClub(ctx, notify.NewGormDispatcher(db), notify.Message{
			Title: event.Title,
			Body:  event.Description,
			Data:  map[string]string{"event_id": event.Id},
		})
		event.PushStatus = status
		if err := db.WithContext(ctx).Model(&models.Event{}).
			Where("id = ?", event.Id).
			Update("push_status", event.PushStatus).Error; err != nil {
			return nil, fmt.Errorf("update push status: %w", err)
		}

		if err := audit.NewGorm(db).Write(ctx, audit.Entry{
			ActorID:    userID,
			Action:     models.AuditEventCreate,
			TargetType: "event",
			TargetID:   event.Id,
			After:      event,
			Meta:       map[string]any{"push": summary, "idempotency_key": key},
		}); err != nil {
			return nil, err
		}

		raw, err := json.Marshal(event)
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

func GetEvents(c *fiber.Ctx) error {
	db, _, userID, err := tenantDB(c)
	if err != nil {
		return err
	}
	if _, err := authz.NewGorm(db).RequireRole(c.UserContext(), userID,
		append(models.AdminRoles(), models.RoleMember)...); err != nil {
		return err
	}

	var events []models.Event
	if err := db.WithContext(c.UserContext()).Order("starts_at ASC").Find(&events).Error; err != nil {
		return err
	}
	return c.JSON(events)
}

func GetEvent(c *fiber.Ctx) error {
	db, _, userID, err := tenantDB(c)
	if err != nil {
		return err
	}
	if _, err := authz.NewGorm(db).RequireRole(c.UserContext(), userID,
		append(models.AdminRoles(), models.RoleMember)...); err != nil {
		return err
	}

	var event models.Event
	res := db.WithContext(c.UserContext()).Where("id = ?", c.Params("id")).Limit(1).Find(&event)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "event not found")
	}
	return c.JSON(event)
}

type AttendanceInput struct {
	Status models.AttendanceStatus `json:"status" validate:"required,oneof=ATTENDING ABSENT MAYBE"`
}

// CastAttendance records or changes the caller's vote on an open poll.
func CastAttendance(c *fiber.Ctx) error {
	var input AttendanceInput
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

	var event models.Event
	res := db.WithContext(c.UserContext()).Where("id = ?", c.Params("id")).Limit(1).Find(&event)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "event not found")
	}
	if event.VoteClosed {
		return apperr.New(apperr.InvalidArgument, "voting is closed for this event")
	}

	vote := models.Attendance{EventID: event.Id, UserID: userID, Status: input.Status}
	if err := db.WithContext(c.UserContext()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&vote).Error; err != nil {
		return fmt.Errorf("cast attendance: %w", err)
	}
	return c.JSON(vote)
}
