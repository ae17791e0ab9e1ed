package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested row or document does not exist
var ErrNotFound = errors.New("not found")

// Connect opens the database for the given driver ("sqlite3" or "postgres") and creates the schema
func Connect(driver, dsn string) (*sqlx.DB, error) {
	if driver == "sqlite3" {
		// Create data directory if it doesn't exist
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite3" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := InitializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitializeSchema creates necessary tables if they don't exist
func InitializeSchema(db *sqlx.DB) error {
	autoID := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		autoID = "BIGSERIAL PRIMARY KEY"
	}

	statements := []struct {
		table string
		ddl   string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				telegram_chat_id BIGINT,
				notification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				notification_hour INTEGER NOT NULL DEFAULT 18,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`},
		{"documents", `
			CREATE TABLE IF NOT EXISTS documents (
				collection TEXT NOT NULL,
				doc_key TEXT NOT NULL,
				body TEXT NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				PRIMARY KEY (collection, doc_key)
			)`},
		{"topics", `
			CREATE TABLE IF NOT EXISTS topics (
				id ` + autoID + `,
				name TEXT NOT NULL UNIQUE,
				created_at TIMESTAMP NOT NULL
			)`},
		{"words", `
			CREATE TABLE IF NOT EXISTS words (
				id ` + autoID + `,
				spanish TEXT NOT NULL,
				english TEXT NOT NULL,
				pronunciation TEXT NOT NULL DEFAULT '',
				example TEXT NOT NULL DEFAULT '',
				topic_id BIGINT NOT NULL REFERENCES topics(id),
				difficulty INTEGER NOT NULL DEFAULT 1,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				UNIQUE (spanish, topic_id)
			)`},
		{"word_progress", `
			CREATE TABLE IF NOT EXISTS word_progress (
				id ` + autoID + `,
				user_id TEXT NOT NULL REFERENCES users(id),
				word_id BIGINT NOT NULL REFERENCES words(id),
				last_review_date TIMESTAMP NOT NULL,
				next_review_date TIMESTAMP NOT NULL,
				interval_days INTEGER NOT NULL DEFAULT 1,
				easiness_factor REAL NOT NULL DEFAULT 2.5,
				repetitions INTEGER NOT NULL DEFAULT 0,
				last_quality INTEGER NOT NULL DEFAULT 3,
				consecutive_right INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				UNIQUE (user_id, word_id)
			)`},
		{"game_results", `
			CREATE TABLE IF NOT EXISTS game_results (
				id ` + autoID + `,
				user_id TEXT NOT NULL REFERENCES users(id),
				game_id TEXT NOT NULL,
				level_id TEXT NOT NULL,
				outcome TEXT NOT NULL,
				score INTEGER NOT NULL DEFAULT 0,
				correct INTEGER NOT NULL DEFAULT 0,
				incorrect INTEGER NOT NULL DEFAULT 0,
				duration_ms BIGINT NOT NULL DEFAULT 0,
				played_at TIMESTAMP NOT NULL
			)`},
	}

	for _, s := range statements {
		if _, err := db.Exec(s.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", s.table, err)
		}
	}
	return nil
}
