package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CommentTargetNotice = "notice"
	CommentTargetEvent  = "event"
)

// Comment hangs off a notice or an event. Deletion is a soft delete so the
// audit trail's before-snapshot stays resolvable.
type Comment struct {
	Id         string     `json:"id" gorm:"primaryKey"`
	TargetType string     `json:"target_type" gorm:"type:VARCHAR(10);not null;index:idx_comments_target,priority:1"`
	TargetID   string     `json:"target_id" gorm:"size:64;not null;index:idx_comments_target,priority:2"`
	AuthorID   string     `json:"author_id" gorm:"size:128;not null;index"`
	Body       string     `json:"body" gorm:"type:text;not null"`
	Deleted    bool       `json:"deleted" gorm:"not null;default:false"`
	DeletedAt  *time.Time `json:"deleted_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (comment *Comment) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	if comment.Id == "" {
		comment.Id = uuid.NewString()
	}
	return
}
