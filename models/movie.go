package models

import (
	"time"
)

type Movie struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	SortNo        int       `json:"sort_no"`
	Path          string    `json:"path"`
	ThumbnailPath string    `json:"thumbnail_path,omitempty"`
	OwnerID       string    `json:"owner_id"`
	OwnerName     string    `json:"owner_name"`
	CreatedAt     time.Time `json:"created_at"`
}

// SignedURL is a time-limited link granting read access to one stored object.
type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
