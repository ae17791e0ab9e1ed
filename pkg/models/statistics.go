package models

// Statistics aggregates a user's game results per game
type Statistics struct {
	GameID        string `json:"game_id" db:"game_id"`
	Sessions      int    `json:"sessions" db:"sessions"`
	Completed     int    `json:"completed" db:"completed"`
	BestScore     int    `json:"best_score" db:"best_score"`
	TotalCorrect  int    `json:"total_correct" db:"total_correct"`
	TotalMistakes int    `json:"total_mistakes" db:"total_mistakes"`
}
