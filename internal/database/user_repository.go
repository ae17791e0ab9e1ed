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

// ErrEmailTaken is returned when signing up with an email that already has an account
var ErrEmailTaken = errors.New("email already registered")

const userColumns = `id, email, password_hash, telegram_chat_id, notification_enabled,
	notification_hour, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. Email is stored lower-cased.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	if _, err := r.GetByEmail(ctx, user.Email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	query := r.db.Rebind(`
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.TelegramChatID,
		user.NotificationEnabled,
		user.NotificationHour,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID returns a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByEmail returns a user by email, case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepository) getOne(ctx context.Context, condition string, arg interface{}) (*models.User, error) {
	var user models.User
	query := r.db.Rebind("SELECT " + userColumns + " FROM users WHERE " + condition)
	err := r.db.GetContext(ctx, &user, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpdateNotifications changes the reminder settings and linked Telegram chat
func (r *UserRepository) UpdateNotifications(ctx context.Context, userID string, enabled bool, hour int, chatID *int64) error {
	query := r.db.Rebind(`
		UPDATE users SET
			notification_enabled = ?,
			notification_hour = ?,
			telegram_chat_id = ?,
			updated_at = ?
		WHERE id = ?
	`)
	res, err := r.db.ExecContext(ctx, query, enabled, hour, chatID, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update notifications: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUsersForNotification returns users with a linked chat who want reminders at this hour
func (r *UserRepository) GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	var users []models.User
	query := r.db.Rebind(`
		SELECT ` + userColumns + ` FROM users
		WHERE notification_enabled = ? AND notification_hour = ? AND telegram_chat_id IS NOT NULL
	`)
	if err := r.db.SelectContext(ctx, &users, query, true, hour); err != nil {
		return nil, fmt.Errorf("failed to get users for notification: %w", err)
	}
	return users, nil
}
