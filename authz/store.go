package authz

import (
	"context"

	"verein-backend/models"

	"gorm.io/gorm"
)

type gormSource struct {
	db *gorm.DB
}

// NewGorm returns a gate reading memberships through a club-scoped session
// (see database.GetTenantDB).
func NewGorm(tenantDB *gorm.DB) *Gate {
	return New(&gormSource{db: tenantDB})
}

func (s *gormSource) ByUser(ctx context.Context, userID string) (*models.Membership, error) {
	var membership models.Membership
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&membership)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &membership, nil
}
