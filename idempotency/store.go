package idempotency

import (
	"context"

	"verein-backend/database"
	"verein-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormStore persists records in the club schema. Every call runs in its own
// short SET LOCAL transaction so claim/finish commits are never coupled to
// the unit-of-work transaction.
type gormStore struct {
	schema string
}

// NewGorm returns a coordinator backed by the club's idempotency_records table.
func NewGorm(schema string) *Coordinator {
	return New(&gormStore{schema: schema})
}

func (s *gormStore) Find(ctx context.Context, keyHash string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	found := false
	err := database.TenantTx(s.schema, func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).Where("key_hash = ?", keyHash).Limit(1).Find(&rec)
		if res.Error != nil {
			return res.Error
		}
		found = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

func (s *gormStore) Create(ctx context.Context, rec *models.IdempotencyRecord) (bool, error) {
	created := false
	err := database.TenantTx(s.schema, func(tx *gorm.DB) error {
		// create-if-absent; a concurrent winner leaves RowsAffected at 0
		res := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0
		return nil
	})
	return created, err
}

func (s *gormStore) Finish(ctx context.Context, keyHash string, fields map[string]any) error {
	return database.TenantTx(s.schema, func(tx *gorm.DB) error {
		return tx.WithContext(ctx).
			Model(&models.IdempotencyRecord{}).
			Where("key_hash = ?", keyHash).
			Updates(fields).Error
	})
}
