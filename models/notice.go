package models

import (
	"time"
)

type Notice struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type NoticeFile struct {
	NoticeID  string     `json:"notice_id"`
	Path      string     `json:"path"`
	FileName  string     `json:"file_name"`
	CreatedAt time.Time  `json:"created_at"`
	URL       *SignedURL `json:"url,omitempty"`
}
