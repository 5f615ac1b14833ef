package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PushStatus reports the outcome of the best-effort member notification
// attached to a content mutation. Delivery failure never fails the mutation.
type PushStatus string

const (
	PushPending PushStatus = "PENDING"
	PushSent    PushStatus = "SENT"
	PushFailed  PushStatus = "FAILED"
)

type Notice struct {
	Id         string     `json:"id" gorm:"primaryKey"`
	Title      string     `json:"title" gorm:"size:200;not null"`
	Body       string     `json:"body" gorm:"type:text;not null"`
	AuthorID   string     `json:"author_id" gorm:"size:128;not null;index"`
	PushStatus PushStatus `json:"push_status" gorm:"type:VARCHAR(10)"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (notice *Notice) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	if notice.Id == "" {
		notice.Id = uuid.NewString()
	}
	return
}
