package server

import (
	"context"
	"time"

	"github.com/example/hablo/internal/auth"
	"github.com/example/hablo/internal/database"
	"github.com/example/hablo/internal/dictionary"
	"github.com/example/hablo/internal/flashcards"
	"github.com/example/hablo/internal/game"
	"github.com/example/hablo/pkg/models"
)

// Identity signs users up and in and verifies tokens
type Identity interface {
	Signup(ctx context.Context, email, password string) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
	User(ctx context.Context, userID string) (*models.User, error)
}

// ProgressStore is the per-user progress record
type ProgressStore interface {
	Load(ctx context.Context, userID, email string) (models.Progress, error)
	UpdateScore(ctx context.Context, userID string, points int) (models.Progress, error)
	UpdateLives(ctx context.Context, userID string, delta int) (models.Progress, error)
	UnlockLevel(ctx context.Context, userID, levelID string) (models.Progress, error)
	CompleteLevel(ctx context.Context, userID, levelID string, score int) (models.Progress, error)
	ResetProgress(ctx context.Context, userID string) (models.Progress, error)
	Flush(ctx context.Context, userID string) error
	Subscribe(ctx context.Context, userID string) (<-chan models.Progress, func(), error)
	Forget(ctx context.Context, userID string) error
}

// Games runs play sessions
type Games interface {
	Start(ctx context.Context, userID, lessonID string) (game.State, error)
	State(userID, sessionID string) (game.State, error)
	Answer(ctx context.Context, userID, sessionID string, a game.Answer) (game.Outcome, error)
	Timeout(ctx context.Context, userID, sessionID string) (game.Outcome, error)
	Restart(ctx context.Context, userID, sessionID string) (game.State, error)
	End(ctx context.Context, userID, sessionID string) error
	EndAll(ctx context.Context, userID string)
}

// Dictionary looks up Spanish definitions
type Dictionary interface {
	Lookup(ctx context.Context, word string) ([]dictionary.Entry, error)
}

// Flashcards schedules vocabulary reviews
type Flashcards interface {
	Due(ctx context.Context, userID string, topicID int64, limit int) ([]flashcards.Card, error)
	Review(ctx context.Context, userID string, wordID int64, quality flashcards.Quality) (*models.WordProgress, error)
	Stats(ctx context.Context, userID string) (*database.FlashcardStats, error)
}

// Topics lists vocabulary topics
type Topics interface {
	GetAll(ctx context.Context) ([]models.Topic, error)
	GetByID(ctx context.Context, id int64) (*models.Topic, error)
}

// Words lists vocabulary words
type Words interface {
	GetByTopic(ctx context.Context, topicID int64) ([]models.Word, error)
}

// Users updates account settings
type Users interface {
	UpdateNotifications(ctx context.Context, userID string, enabled bool, hour int, chatID *int64) error
}

// Statistics reads finished game sessions
type Statistics interface {
	GetUserStatistics(ctx context.Context, userID string) ([]models.Statistics, error)
}

// Results lists recent game sessions
type Results interface {
	GetByUserID(ctx context.Context, userID string, limit int) ([]models.GameResult, error)
}

// Options tunes the HTTP server
type Options struct {
	Addr          string
	CORSOrigins   []string
	Mode          string
	ReadTimeout   time.Duration
	MaxAudioBytes int64
	Version       string
}
