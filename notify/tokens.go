package notify

import (
	"context"
	"fmt"

	"verein-backend/models"

	"gorm.io/gorm"
)

type gormTokens struct {
	db *gorm.DB
}

// NewGormDispatcher wires a dispatcher for one club: tokens from the club
// schema, delivery through the process-wide transport.
func NewGormDispatcher(tenantDB *gorm.DB) *Dispatcher {
	return NewDispatcher(&gormTokens{db: tenantDB}, DefaultTransport())
}

func (s *gormTokens) Resolve(ctx context.Context, target Target) ([]string, error) {
	var tokens []string
	q := s.db.WithContext(ctx).Model(&models.DeviceToken{})

	switch target.Kind {
	case TargetAll:
		// every registered device in the club
	case TargetAdmins:
		q = q.Joins("JOIN memberships ON memberships.user_id = device_tokens.user_id").
			Where("memberships.role IN ?", models.AdminRoles())
	case TargetUsers:
		if len(target.UserIDs) == 0 {
			return nil, nil
		}
		q = q.Where("device_tokens.user_id IN ?", target.UserIDs)
	default:
		return nil, fmt.Errorf("unknown notification target %q", target.Kind)
	}

	if err := q.Pluck("device_tokens.token", &tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}
