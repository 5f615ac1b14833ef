package scheduler

import (
	"context"
	"time"

	"verein-backend/audit"
	"verein-backend/database"
	"verein-backend/idempotency"
	"verein-backend/models"
	"verein-backend/notify"

	"gorm.io/gorm"
)

type gormEvents struct {
	db *gorm.DB
}

func (s *gormEvents) Due(ctx context.Context, now time.Time) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("type = ? AND vote_closed = ? AND vote_close_at <= ?", models.EventTypeEvent, false, now).
		Find(&events).Error
	return events, err
}

func (s *gormEvents) Close(ctx context.Context, eventID string, closedAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", eventID).
		Updates(map[string]any{"vote_closed": true, "vote_closed_at": &closedAt}).Error
}

func (s *gormEvents) CountAttendance(ctx context.Context, eventID string) (models.AttendanceSummary, error) {
	var rows []struct {
		Status models.AttendanceStatus
		N      int
	}
	err := s.db.WithContext(ctx).
		Model(&models.Attendance{}).
		Select("status, count(*) as n").
		Where("event_id = ?", eventID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return models.AttendanceSummary{}, err
	}

	var summary models.AttendanceSummary
	for _, row := range rows {
		switch row.Status {
		case models.Attending:
			summary.Attending = row.N
		case models.Absent:
			summary.Absent = row.N
		case models.Maybe:
			summary.Maybe = row.N
		}
	}
	return summary, nil
}

func (s *gormEvents) SaveSummary(ctx context.Context, eventID string, sum models.AttendanceSummary) error {
	return s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", eventID).
		Updates(map[string]any{
			"attending": sum.Attending,
			"absent":    sum.Absent,
			"maybe":     sum.Maybe,
		}).Error
}

// NewGormJob builds the production job: club list from the public schema,
// per-club collaborators bound to the club's search_path session.
func NewGormJob() *Job {
	return &Job{
		Tenants: func(ctx context.Context) ([]Tenant, error) {
			var clubs []models.Club
			if err := database.DB.WithContext(ctx).Find(&clubs).Error; err != nil {
				return nil, err
			}

			tenants := make([]Tenant, 0, len(clubs))
			for _, club := range clubs {
				tenantDB, err := database.GetTenantDB(club.SchemaName)
				if err != nil {
					return nil, err
				}
				tenants = append(tenants, Tenant{
					Schema: club.SchemaName,
					Events: &gormEvents{db: tenantDB},
					Coord:  idempotency.NewGorm(club.SchemaName),
					Notify: notify.NewGormDispatcher(tenantDB),
					Audit:  audit.NewGorm(tenantDB),
				})
			}
			return tenants, nil
		},
	}
}
