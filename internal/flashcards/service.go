package flashcards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/hablo/internal/database"
	"github.com/example/hablo/internal/logger"
	"github.com/example/hablo/pkg/models"
)

// ErrInvalidQuality is returned for ratings outside 0-5
var ErrInvalidQuality = errors.New("quality must be between 0 and 5")

// ProgressRepository stores SM-2 state per user and word
type ProgressRepository interface {
	GetByUserAndWord(ctx context.Context, userID string, wordID int64) (*models.WordProgress, error)
	GetDueForUser(ctx context.Context, userID string, now time.Time) ([]models.WordProgress, error)
	GetUnseenWords(ctx context.Context, userID string, topicID int64, limit int) ([]models.Word, error)
	Upsert(ctx context.Context, progress *models.WordProgress) error
	GetUserStatistics(ctx context.Context, userID string, now time.Time) (*database.FlashcardStats, error)
}

// WordRepository reads vocabulary
type WordRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Word, error)
}

// TopicRepository lists vocabulary topics
type TopicRepository interface {
	GetAll(ctx context.Context) ([]models.Topic, error)
}

// Card is one word to review
type Card struct {
	Word     models.Word          `json:"word"`
	Progress *models.WordProgress `json:"progress,omitempty"`
	New      bool                 `json:"new"`
}

// Service schedules flashcard reviews
type Service struct {
	progress ProgressRepository
	words    WordRepository
	topics   TopicRepository
	sm2      *SM2
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates a flashcard service
func NewService(progress ProgressRepository, words WordRepository, topics TopicRepository, log *logger.Logger) *Service {
	return &Service{
		progress: progress,
		words:    words,
		topics:   topics,
		sm2:      NewSM2(),
		log:      log.With("service", "flashcards"),
		now:      time.Now,
	}
}

// Due returns up to limit cards: words due for review first, then words never seen.
// With topicID 0 new words may come from any topic.
func (s *Service) Due(ctx context.Context, userID string, topicID int64, limit int) ([]Card, error) {
	due, err := s.progress.GetDueForUser(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}

	cards := make([]Card, 0, limit)
	for _, p := range Prioritize(due, limit) {
		word, err := s.words.GetByID(ctx, p.WordID)
		if errors.Is(err, database.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if topicID != 0 && word.TopicID != topicID {
			continue
		}
		p := p
		cards = append(cards, Card{Word: *word, Progress: &p})
	}

	topicIDs := []int64{topicID}
	if topicID == 0 {
		topics, err := s.topics.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		topicIDs = topicIDs[:0]
		for _, t := range topics {
			topicIDs = append(topicIDs, t.ID)
		}
	}

	for _, id := range topicIDs {
		if len(cards) >= limit {
			break
		}
		unseen, err := s.progress.GetUnseenWords(ctx, userID, id, limit-len(cards))
		if err != nil {
			return nil, err
		}
		for _, w := range unseen {
			cards = append(cards, Card{Word: w, New: true})
		}
	}
	return cards, nil
}

// Review records a rating for a word and schedules its next review
func (s *Service) Review(ctx context.Context, userID string, wordID int64, quality Quality) (*models.WordProgress, error) {
	if !quality.Valid() {
		return nil, ErrInvalidQuality
	}
	if _, err := s.words.GetByID(ctx, wordID); err != nil {
		return nil, err
	}

	now := s.now()
	progress, err := s.progress.GetByUserAndWord(ctx, userID, wordID)
	if errors.Is(err, database.ErrNotFound) {
		progress = NewProgress(userID, wordID, now)
	} else if err != nil {
		return nil, err
	}

	s.sm2.Apply(progress, quality, now)
	if err := s.progress.Upsert(ctx, progress); err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}

	s.log.Debug("flashcard reviewed", "user_id", userID, "word_id", wordID, "quality", int(quality), "interval", progress.Interval)
	return progress, nil
}

// Stats summarizes a user's flashcards
func (s *Service) Stats(ctx context.Context, userID string) (*database.FlashcardStats, error) {
	return s.progress.GetUserStatistics(ctx, userID, s.now())
}
