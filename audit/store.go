package audit

import (
	"context"
	"encoding/json"

	"verein-backend/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type gormSink struct {
	db *gorm.DB
}

// NewGorm returns a writer appending to the club's audit_records table.
func NewGorm(tenantDB *gorm.DB) *Writer {
	return New(&gormSink{db: tenantDB})
}

func (s *gormSink) Append(ctx context.Context, rec *models.AuditRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

func marshalMeta(meta map[string]any) (datatypes.JSON, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
