package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/hablo/pkg/models"
	"github.com/jmoiron/sqlx"
)

const wordColumns = `id, spanish, english, pronunciation, example, topic_id, difficulty, created_at, updated_at`

// WordRepository handles database operations for words
type WordRepository struct {
	db *sqlx.DB
}

// NewWordRepository creates a new repository instance
func NewWordRepository(db *sqlx.DB) *WordRepository {
	return &WordRepository{db: db}
}

// GetByID returns a word by ID
func (r *WordRepository) GetByID(ctx context.Context, id int64) (*models.Word, error) {
	var word models.Word
	query := r.db.Rebind("SELECT " + wordColumns + " FROM words WHERE id = ?")
	err := r.db.GetContext(ctx, &word, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word by ID: %w", err)
	}
	return &word, nil
}

// GetAll returns all words
func (r *WordRepository) GetAll(ctx context.Context) ([]models.Word, error) {
	var words []models.Word
	if err := r.db.SelectContext(ctx, &words, "SELECT "+wordColumns+" FROM words ORDER BY topic_id, spanish"); err != nil {
		return nil, fmt.Errorf("failed to get words: %w", err)
	}
	return words, nil
}

// GetByTopic returns words for a specific topic
func (r *WordRepository) GetByTopic(ctx context.Context, topicID int64) ([]models.Word, error) {
	var words []models.Word
	query := r.db.Rebind("SELECT " + wordColumns + " FROM words WHERE topic_id = ? ORDER BY spanish")
	if err := r.db.SelectContext(ctx, &words, query, topicID); err != nil {
		return nil, fmt.Errorf("failed to get words by topic: %w", err)
	}
	return words, nil
}

// GetBySpanishAndTopic returns the word with this Spanish spelling in the topic
func (r *WordRepository) GetBySpanishAndTopic(ctx context.Context, spanish string, topicID int64) (*models.Word, error) {
	var word models.Word
	query := r.db.Rebind("SELECT " + wordColumns + " FROM words WHERE LOWER(spanish) = ? AND topic_id = ?")
	err := r.db.GetContext(ctx, &word, query, strings.ToLower(strings.TrimSpace(spanish)), topicID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word: %w", err)
	}
	return &word, nil
}

// Create inserts a new word and fills in its ID
func (r *WordRepository) Create(ctx context.Context, word *models.Word) error {
	now := time.Now().UTC()
	word.CreatedAt, word.UpdatedAt = now, now
	query := r.db.Rebind(`
		INSERT INTO words (spanish, english, pronunciation, example, topic_id, difficulty, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query,
		word.Spanish,
		word.English,
		word.Pronunciation,
		word.Example,
		word.TopicID,
		word.Difficulty,
		word.CreatedAt,
		word.UpdatedAt,
	).Scan(&word.ID)
	if err != nil {
		return fmt.Errorf("failed to create word: %w", err)
	}
	return nil
}

// Update modifies an existing word
func (r *WordRepository) Update(ctx context.Context, word *models.Word) error {
	word.UpdatedAt = time.Now().UTC()
	query := r.db.Rebind(`
		UPDATE words SET
			english = ?,
			pronunciation = ?,
			example = ?,
			difficulty = ?,
			updated_at = ?
		WHERE id = ?
	`)
	_, err := r.db.ExecContext(ctx, query,
		word.English,
		word.Pronunciation,
		word.Example,
		word.Difficulty,
		word.UpdatedAt,
		word.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update word: %w", err)
	}
	return nil
}

// VocabularyStore reads topics and their words through one value
type VocabularyStore struct {
	topics *TopicRepository
	words  *WordRepository
}

// NewVocabularyStore creates a vocabulary reader
func NewVocabularyStore(db *sqlx.DB) *VocabularyStore {
	return &VocabularyStore{topics: NewTopicRepository(db), words: NewWordRepository(db)}
}

// GetByName returns a topic by name
func (v *VocabularyStore) GetByName(ctx context.Context, name string) (*models.Topic, error) {
	return v.topics.GetByName(ctx, name)
}

// GetByTopic returns the words of a topic
func (v *VocabularyStore) GetByTopic(ctx context.Context, topicID int64) ([]models.Word, error) {
	return v.words.GetByTopic(ctx, topicID)
}

// GetAll returns every word
func (v *VocabularyStore) GetAll(ctx context.Context) ([]models.Word, error) {
	return v.words.GetAll(ctx)
}
