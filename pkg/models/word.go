package models

import "time"

// Word is a Spanish vocabulary entry
type Word struct {
	ID            int64     `json:"id" db:"id"`
	Spanish       string    `json:"spanish" db:"spanish"`
	English       string    `json:"english" db:"english"`
	Pronunciation string    `json:"pronunciation" db:"pronunciation"`
	Example       string    `json:"example" db:"example"`
	TopicID       int64     `json:"topic_id" db:"topic_id"`
	Difficulty    int       `json:"difficulty" db:"difficulty"` // 1-5 scale of difficulty
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
