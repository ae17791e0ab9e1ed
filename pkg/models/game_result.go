package models

import "time"

const (
	OutcomeLevelComplete = "level_complete"
	OutcomeGameOver      = "game_over"
	OutcomeAbandoned     = "abandoned"
)

// GameResult records how a single play session ended
type GameResult struct {
	ID         int64     `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	GameID     string    `json:"game_id" db:"game_id"`
	LevelID    string    `json:"level_id" db:"level_id"`
	Outcome    string    `json:"outcome" db:"outcome"`
	Score      int       `json:"score" db:"score"`
	Correct    int       `json:"correct" db:"correct"`
	Incorrect  int       `json:"incorrect" db:"incorrect"`
	DurationMS int64     `json:"duration_ms" db:"duration_ms"`
	PlayedAt   time.Time `json:"played_at" db:"played_at"`
}
