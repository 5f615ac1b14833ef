package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Club is the tenant registry row (public schema). All club-owned data lives
// in the Postgres schema named by SchemaName.
type Club struct {
	Id         string    `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name" gorm:"not null;unique"`
	OwnerId    string    `json:"-" gorm:"not null"`
	Owner      User      `json:"owner" gorm:"foreignKey:OwnerId;references:Id"`
	SchemaName string    `json:"-" gorm:"unique;not null"`
	CreatedAt  time.Time `json:"created_at"`
}

func (club *Club) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	club.Id = uuid.NewString()
	return
}
