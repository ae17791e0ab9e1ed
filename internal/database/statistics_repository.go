package database

import (
	"context"
	"fmt"

	"github.com/example/hablo/pkg/models"
	"github.com/jmoiron/sqlx"
)

// StatisticsRepository aggregates game results
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// GetUserStatistics returns per-game totals for a user
func (r *StatisticsRepository) GetUserStatistics(ctx context.Context, userID string) ([]models.Statistics, error) {
	var stats []models.Statistics
	query := r.db.Rebind(`
		SELECT
			game_id,
			COUNT(*) AS sessions,
			COALESCE(SUM(CASE WHEN outcome = 'level_complete' THEN 1 ELSE 0 END), 0) AS completed,
			COALESCE(MAX(score), 0) AS best_score,
			COALESCE(SUM(correct), 0) AS total_correct,
			COALESCE(SUM(incorrect), 0) AS total_mistakes
		FROM game_results
		WHERE user_id = ?
		GROUP BY game_id
		ORDER BY sessions DESC, game_id
	`)
	if err := r.db.SelectContext(ctx, &stats, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user statistics: %w", err)
	}
	return stats, nil
}
