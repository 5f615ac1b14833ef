package authz

import (
	"context"
	"fmt"

	"verein-backend/apperr"
	"verein-backend/models"
)

// MembershipSource reads the caller's membership row within one club schema.
type MembershipSource interface {
	// ByUser returns the membership for userID, or nil if none exists.
	ByUser(ctx context.Context, userID string) (*models.Membership, error)
}

// Gate is the role allow-list check every mutation passes before any
// side-effecting work. Pure read; never memoized (roles change between
// requests).
type Gate struct {
	source MembershipSource
}

func New(source MembershipSource) *Gate {
	return &Gate{source: source}
}

// RequireRole resolves the caller's role and enforces the allow-list. A
// missing membership and a disallowed role both fail with PermissionDenied;
// the coarse gate runs before any target lookup, so denial never leaks
// whether the target resource exists. The resolved role is returned so
// handlers can apply finer-grained policy without a second read.
func (g *Gate) RequireRole(ctx context.Context, userID string, allowed ...models.Role) (models.Role, error) {
	membership, err := g.source.ByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("membership lookup failed: %w", err)
	}
	if membership == nil {
		return "", apperr.New(apperr.PermissionDenied, "not a member of this club")
	}
	for _, role := range allowed {
		if membership.Role == role {
			return membership.Role, nil
		}
	}
	return "", apperr.WithDetails(apperr.PermissionDenied, "role not permitted for this action",
		map[string]any{"required": allowed, "actual": membership.Role})
}
