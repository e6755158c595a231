package models

import (
	"time"
)

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Birthday  string    `json:"birthday,omitempty"` // YYYY-MM-DD
	GroupID   string    `json:"group_id,omitempty"`
	StatusID  string    `json:"status_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Group and Status are master rows used to label users.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Status struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
