package models

import "time"

// Tag is a user-defined label, many-to-many with ProcessedFrame.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}
