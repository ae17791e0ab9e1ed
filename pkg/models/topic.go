package models

import "time"

// Topic groups vocabulary words, e.g. "family" or "objects"
type Topic struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
