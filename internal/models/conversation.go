package models

import "time"

// Conversation groups the turns exchanged with one user.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Locale    string    `json:"locale"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
