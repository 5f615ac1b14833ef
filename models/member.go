package models

import "time"

// Role is the closed, ordered set of club roles.
type Role string

const (
	RoleOwner     Role = "OWNER"
	RoleDirector  Role = "DIRECTOR"
	RoleTreasurer Role = "TREASURER"
	RoleAdmin     Role = "ADMIN"
	RoleMember    Role = "MEMBER"
)

// Rank orders roles for comparison; higher means more privileged.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 5
	case RoleDirector:
		return 4
	case RoleTreasurer:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

func (r Role) Valid() bool {
	return r.Rank() > 0
}

// AdminRoles is the set allowed to publish content and manage the club.
func AdminRoles() []Role {
	return []Role{RoleOwner, RoleDirector, RoleTreasurer, RoleAdmin}
}

// Membership ties a platform user to a role within one club schema.
type Membership struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"size:128;uniqueIndex;not null"`
	DisplayName string    `json:"display_name" gorm:"size:100"`
	Role        Role      `json:"role" gorm:"type:VARCHAR(20);not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
