package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/hablo/pkg/models"
	"github.com/jmoiron/sqlx"
)

const wordProgressColumns = `id, user_id, word_id, last_review_date, next_review_date, interval_days,
	easiness_factor, repetitions, last_quality, consecutive_right, created_at, updated_at`

// FlashcardStats summarizes a user's flashcard progress
type FlashcardStats struct {
	TotalWords        int     `json:"total_words" db:"total_words"`
	DueToday          int     `json:"due_today" db:"due_today"`
	Mastered          int     `json:"mastered" db:"mastered"`
	AvgEasinessFactor float64 `json:"avg_easiness_factor" db:"avg_easiness_factor"`
}

// WordProgressRepository handles database operations for flashcard progress
type WordProgressRepository struct {
	db *sqlx.DB
}

// NewWordProgressRepository creates a new repository instance
func NewWordProgressRepository(db *sqlx.DB) *WordProgressRepository {
	return &WordProgressRepository{db: db}
}

// GetByUserAndWord returns progress for a specific user and word
func (r *WordProgressRepository) GetByUserAndWord(ctx context.Context, userID string, wordID int64) (*models.WordProgress, error) {
	var progress models.WordProgress
	query := r.db.Rebind("SELECT " + wordProgressColumns + " FROM word_progress WHERE user_id = ? AND word_id = ?")
	err := r.db.GetContext(ctx, &progress, query, userID, wordID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word progress: %w", err)
	}
	return &progress, nil
}

// GetDueForUser returns progress rows whose next review is at or before now
func (r *WordProgressRepository) GetDueForUser(ctx context.Context, userID string, now time.Time) ([]models.WordProgress, error) {
	var progress []models.WordProgress
	query := r.db.Rebind(`
		SELECT ` + wordProgressColumns + ` FROM word_progress
		WHERE user_id = ? AND next_review_date <= ?
		ORDER BY next_review_date ASC
	`)
	if err := r.db.SelectContext(ctx, &progress, query, userID, now.UTC()); err != nil {
		return nil, fmt.Errorf("failed to get due words: %w", err)
	}
	return progress, nil
}

// GetUnseenWords returns words of a topic the user has never reviewed
func (r *WordProgressRepository) GetUnseenWords(ctx context.Context, userID string, topicID int64, limit int) ([]models.Word, error) {
	var words []models.Word
	query := r.db.Rebind(`
		SELECT ` + wordColumns + ` FROM words
		WHERE topic_id = ? AND id NOT IN (SELECT word_id FROM word_progress WHERE user_id = ?)
		ORDER BY id ASC
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &words, query, topicID, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get unseen words: %w", err)
	}
	return words, nil
}

// Upsert creates or updates a progress record
func (r *WordProgressRepository) Upsert(ctx context.Context, progress *models.WordProgress) error {
	now := time.Now().UTC()
	if progress.CreatedAt.IsZero() {
		progress.CreatedAt = now
	}
	progress.UpdatedAt = now

	query := r.db.Rebind(`
		INSERT INTO word_progress (
			user_id, word_id, last_review_date, next_review_date, interval_days,
			easiness_factor, repetitions, last_quality, consecutive_right, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, word_id) DO UPDATE SET
			last_review_date = excluded.last_review_date,
			next_review_date = excluded.next_review_date,
			interval_days = excluded.interval_days,
			easiness_factor = excluded.easiness_factor,
			repetitions = excluded.repetitions,
			last_quality = excluded.last_quality,
			consecutive_right = excluded.consecutive_right,
			updated_at = excluded.updated_at
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query,
		progress.UserID,
		progress.WordID,
		progress.LastReviewDate.UTC(),
		progress.NextReviewDate.UTC(),
		progress.Interval,
		progress.EasinessFactor,
		progress.Repetitions,
		progress.LastQuality,
		progress.ConsecutiveRight,
		progress.CreatedAt,
		progress.UpdatedAt,
	).Scan(&progress.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert word progress: %w", err)
	}
	return nil
}

// GetUserStatistics returns statistics about a user's flashcard progress
func (r *WordProgressRepository) GetUserStatistics(ctx context.Context, userID string, now time.Time) (*FlashcardStats, error) {
	var stats FlashcardStats
	query := r.db.Rebind(`
		SELECT
			COUNT(*) AS total_words,
			COALESCE(SUM(CASE WHEN next_review_date <= ? THEN 1 ELSE 0 END), 0) AS due_today,
			COALESCE(SUM(CASE WHEN repetitions >= 5 AND last_quality >= 4 THEN 1 ELSE 0 END), 0) AS mastered,
			COALESCE(AVG(easiness_factor), 2.5) AS avg_easiness_factor
		FROM word_progress
		WHERE user_id = ?
	`)
	if err := r.db.GetContext(ctx, &stats, query, now.UTC().AddDate(0, 0, 1), userID); err != nil {
		return nil, fmt.Errorf("failed to get flashcard statistics: %w", err)
	}
	return &stats, nil
}
