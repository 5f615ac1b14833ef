package models

import (
	"time"

	"gorm.io/datatypes"
)

type IdempotencyStatus string

const (
	IdempotencyRunning IdempotencyStatus = "RUNNING"
	IdempotencyDone    IdempotencyStatus = "DONE"
	IdempotencyFailed  IdempotencyStatus = "FAILED"
)

// IdempotencyRecord serializes one logical mutation per key within a tenant
// schema. Creation via create-if-absent is the sole serialization point; the
// record is never deleted here (retention is an operational concern).
type IdempotencyRecord struct {
	KeyHash     string            `json:"key_hash" gorm:"primaryKey;size:64"` // sha256 hex of OriginalKey
	OriginalKey string            `json:"original_key" gorm:"size:255"`
	Status      IdempotencyStatus `json:"status" gorm:"type:VARCHAR(10);not null;index"`
	Result      datatypes.JSON    `json:"result" gorm:"type:jsonb"` // set only when Status=DONE
	Error       *string           `json:"error" gorm:"type:text"`   // set only when Status=FAILED
	CreatedAt   time.Time         `json:"created_at"`
	FinishedAt  *time.Time        `json:"finished_at"`
}
