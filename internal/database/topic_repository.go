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

// TopicRepository handles database operations for vocabulary topics
type TopicRepository struct {
	db *sqlx.DB
}

// NewTopicRepository creates a new repository instance
func NewTopicRepository(db *sqlx.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// GetAll returns all topics ordered by name
func (r *TopicRepository) GetAll(ctx context.Context) ([]models.Topic, error) {
	var topics []models.Topic
	if err := r.db.SelectContext(ctx, &topics, "SELECT id, name, created_at FROM topics ORDER BY name"); err != nil {
		return nil, fmt.Errorf("failed to get topics: %w", err)
	}
	return topics, nil
}

// GetByID returns a topic by ID
func (r *TopicRepository) GetByID(ctx context.Context, id int64) (*models.Topic, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByName returns a topic by name, case-insensitively
func (r *TopicRepository) GetByName(ctx context.Context, name string) (*models.Topic, error) {
	return r.getOne(ctx, "LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name)))
}

func (r *TopicRepository) getOne(ctx context.Context, condition string, arg interface{}) (*models.Topic, error) {
	var topic models.Topic
	query := r.db.Rebind("SELECT id, name, created_at FROM topics WHERE " + condition)
	err := r.db.GetContext(ctx, &topic, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return &topic, nil
}

// Create inserts a new topic and fills in its ID
func (r *TopicRepository) Create(ctx context.Context, topic *models.Topic) error {
	topic.Name = strings.TrimSpace(topic.Name)
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = time.Now().UTC()
	}
	query := r.db.Rebind("INSERT INTO topics (name, created_at) VALUES (?, ?) RETURNING id")
	if err := r.db.QueryRowxContext(ctx, query, topic.Name, topic.CreatedAt).Scan(&topic.ID); err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	return nil
}

// GetOrCreate returns the topic with this name, creating it if needed
func (r *TopicRepository) GetOrCreate(ctx context.Context, name string) (*models.Topic, error) {
	topic, err := r.GetByName(ctx, name)
	if err == nil {
		return topic, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	topic = &models.Topic{Name: name}
	if err := r.Create(ctx, topic); err != nil {
		return nil, err
	}
	return topic, nil
}
