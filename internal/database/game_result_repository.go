package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/hablo/pkg/models"
	"github.com/jmoiron/sqlx"
)

// GameResultRepository handles database operations for finished game sessions
type GameResultRepository struct {
	db *sqlx.DB
}

// NewGameResultRepository creates a new repository instance
func NewGameResultRepository(db *sqlx.DB) *GameResultRepository {
	return &GameResultRepository{db: db}
}

// Create inserts a new game result
func (r *GameResultRepository) Create(ctx context.Context, result *models.GameResult) error {
	if result.PlayedAt.IsZero() {
		result.PlayedAt = time.Now().UTC()
	}
	query := r.db.Rebind(`
		INSERT INTO game_results (
			user_id, game_id, level_id, outcome, score, correct, incorrect, duration_ms, played_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query,
		result.UserID,
		result.GameID,
		result.LevelID,
		result.Outcome,
		result.Score,
		result.Correct,
		result.Incorrect,
		result.DurationMS,
		result.PlayedAt.UTC(),
	).Scan(&result.ID)
	if err != nil {
		return fmt.Errorf("failed to create game result: %w", err)
	}
	return nil
}

// GetByUserID returns the most recent results for a user
func (r *GameResultRepository) GetByUserID(ctx context.Context, userID string, limit int) ([]models.GameResult, error) {
	var results []models.GameResult
	query := r.db.Rebind(`
		SELECT id, user_id, game_id, level_id, outcome, score, correct, incorrect, duration_ms, played_at
		FROM game_results
		WHERE user_id = ?
		ORDER BY played_at DESC, id DESC
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &results, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get game results: %w", err)
	}
	return results, nil
}
