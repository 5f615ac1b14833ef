package database

import (
	"fmt"

	"verein-backend/models"

	"gorm.io/gorm"
)

// MigrateTenantSchema applies (idempotent) schema migrations for a single club
// schema. It pins search_path to the club and performs:
// - AutoMigrate (tables/columns)
// - Indexes for the reconciliation scan and the audit trail
// - Idempotency records table + status index
func MigrateTenantSchema(schema string) error {
	if schema == "" {
		return fmt.Errorf("schema name is empty")
	}

	return DB.Transaction(func(tx *gorm.DB) error {
		// Pin the club schema for this transaction
		if err := tx.Exec(`SET search_path = "` + schema + `", public`).Error; err != nil {
			return fmt.Errorf("set search_path failed: %w", err)
		}

		// --- AutoMigrate tables/columns/index tags (non-destructive) ---
		if err := tx.AutoMigrate(
			&models.Membership{},
			&models.Notice{},
			&models.Event{},
			&models.Attendance{},
			&models.Comment{},
			&models.DeviceToken{},
			&models.IdempotencyRecord{},
			&models.AuditRecord{},
		); err != nil {
			return fmt.Errorf("tenant automigrate failed: %w", err)
		}

		// --- Composite / helpful indexes (idempotent) ---
		indexes := []string{
			// The reconciliation scan: vote_closed = false AND vote_close_at <= now
			`CREATE INDEX IF NOT EXISTS idx_events_vote_open_due ON events (vote_close_at) WHERE vote_closed = false`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_attendances_event_user ON attendances (event_id, user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_comments_target ON comments (target_type, target_id)`,
			`CREATE INDEX IF NOT EXISTS idx_audit_records_actor_created ON audit_records (actor_id, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_device_tokens_user ON device_tokens (user_id)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		return nil
	})
}
