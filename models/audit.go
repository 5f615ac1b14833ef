package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditAction is the closed set of audited mutation tags.
type AuditAction string

const (
	AuditNoticeCreate     AuditAction = "notice.create"
	AuditEventCreate      AuditAction = "event.create"
	AuditEventCloseVoting AuditAction = "event.close_voting"
	AuditMemberChangeRole AuditAction = "member.change_role"
	AuditCommentEdit      AuditAction = "comment.edit"
	AuditCommentDelete    AuditAction = "comment.delete"
	AuditTokenRegister    AuditAction = "token.register"
)

// AuditRecord is append-only: one row per privileged mutation, never updated
// or deleted. Oversized before/after payloads are stored as structural
// summaries (see package audit).
type AuditRecord struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	ActorID    string         `json:"actor_id" gorm:"size:128;not null;index"`
	Action     AuditAction    `json:"action" gorm:"type:VARCHAR(50);not null;index"`
	TargetType string         `json:"target_type" gorm:"type:VARCHAR(50);not null"`
	TargetID   string         `json:"target_id" gorm:"size:128;index"`
	Before     datatypes.JSON `json:"before,omitempty" gorm:"type:jsonb"`
	After      datatypes.JSON `json:"after,omitempty" gorm:"type:jsonb"`
	Meta       datatypes.JSON `json:"meta,omitempty" gorm:"type:jsonb"`
	CreatedAt  time.Time      `json:"created_at"`
}
