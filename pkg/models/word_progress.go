package models

import "time"

// WordProgress tracks a user's flashcard state for one word using the SM-2 algorithm
type WordProgress struct {
	ID               int64     `json:"id" db:"id"`
	UserID           string    `json:"user_id" db:"user_id"`
	WordID           int64     `json:"word_id" db:"word_id"`
	LastReviewDate   time.Time `json:"last_review_date" db:"last_review_date"`
	NextReviewDate   time.Time `json:"next_review_date" db:"next_review_date"`
	Interval         int       `json:"interval" db:"interval_days"`              // Current interval in days
	EasinessFactor   float64   `json:"easiness_factor" db:"easiness_factor"`     // SM-2 EF parameter
	Repetitions      int       `json:"repetitions" db:"repetitions"`             // Number of successful repetitions
	LastQuality      int       `json:"last_quality" db:"last_quality"`           // 0-5 rating of last recall
	ConsecutiveRight int       `json:"consecutive_right" db:"consecutive_right"` // Number of consecutive correct recalls
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}
