package models

import (
	"time"
)

// AttendanceStatus is a user's answer to a schedule entry. Unset means no
// attendance row exists.
type AttendanceStatus int

const (
	AttendanceUnset        AttendanceStatus = 0
	AttendanceAttending    AttendanceStatus = 1
	AttendanceNotAttending AttendanceStatus = 2
)

// Valid reports whether s can be stored. Unset is never stored.
func (s AttendanceStatus) Valid() bool {
	return s == AttendanceAttending || s == AttendanceNotAttending
}

func (s AttendanceStatus) String() string {
	switch s {
	case AttendanceAttending:
		return "attending"
	case AttendanceNotAttending:
		return "not_attending"
	default:
		return "unset"
	}
}

type Schedule struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Place     string    `json:"place"`
	Content   string    `json:"content"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Attendance struct {
	ID         string           `json:"id"`
	ScheduleID string           `json:"schedule_id"`
	UserID     string           `json:"user_id"`
	Status     AttendanceStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

type Participant struct {
	UserID string    `json:"user_id"`
	Name   string    `json:"name"`
	Since  time.Time `json:"since"`
}
