package models

import "time"

// DeviceToken is one push-registration token of one member's device.
// Invalid tokens reported by the transport are pruned by a maintenance path,
// never by the dispatcher itself.
type DeviceToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"size:128;not null;index"`
	Token     string    `json:"token" gorm:"size:255;uniqueIndex;not null"`
	Platform  string    `json:"platform" gorm:"type:VARCHAR(10)"` // ios | android | web
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
