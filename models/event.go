package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventType discriminates rows in the events table; only "event" rows carry
// an attendance poll the reconciliation job may close.
const EventTypeEvent = "event"

type AttendanceSummary struct {
	Attending int `json:"attending" gorm:"column:attending"`
	Absent    int `json:"absent" gorm:"column:absent"`
	Maybe     int `json:"maybe" gorm:"column:maybe"`
}

type Event struct {
	Id           string     `json:"id" gorm:"primaryKey"`
	Type         string     `json:"type" gorm:"type:VARCHAR(20);not null;default:event;index"`
	Title        string     `json:"title" gorm:"size:200;not null"`
	Description  string     `json:"description" gorm:"type:text"`
	Location     string     `json:"location" gorm:"size:200"`
	StartsAt     time.Time  `json:"starts_at"`
	VoteCloseAt  time.Time  `json:"vote_close_at" gorm:"index;not null"`
	VoteClosed   bool       `json:"vote_closed" gorm:"not null;default:false;index"`
	VoteClosedAt *time.Time `json:"vote_closed_at"`

	// Derived counts, populated when voting closes.
	AttendanceSummary AttendanceSummary `json:"attendance_summary" gorm:"embedded"`

	AuthorID   string     `json:"author_id" gorm:"size:128;not null;index"`
	PushStatus PushStatus `json:"push_status" gorm:"type:VARCHAR(10)"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (event *Event) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	if event.Id == "" {
		event.Id = uuid.NewString()
	}
	return
}

// AttendanceStatus is a member's vote on an event poll.
type AttendanceStatus string

const (
	Attending AttendanceStatus = "ATTENDING"
	Absent    AttendanceStatus = "ABSENT"
	Maybe     AttendanceStatus = "MAYBE"
)

func (s AttendanceStatus) Valid() bool {
	return s == Attending || s == Absent || s == Maybe
}

type Attendance struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	EventID   string           `json:"event_id" gorm:"size:64;not null;index:idx_attendances_event_user,unique,priority:1"`
	UserID    string           `json:"user_id" gorm:"size:128;not null;index:idx_attendances_event_user,unique,priority:2"`
	Status    AttendanceStatus `json:"status" gorm:"type:VARCHAR(10);not null"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
