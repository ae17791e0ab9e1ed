package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/example/hablo/internal/content"
	"github.com/example/hablo/internal/logger"
	"github.com/example/hablo/pkg/models"
	"github.com/google/uuid"
)

// ResultRecorder stores finished sessions
type ResultRecorder interface {
	Create(ctx context.Context, result *models.GameResult) error
}

// Manager owns the active sessions. A user has at most one session;
// starting another ends the previous one.
type Manager struct {
	catalog *content.Catalog
	tracker Tracker
	results ResultRecorder
	vocab   *VocabularyBuilder
	log     *logger.Logger
	now     func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu       sync.RWMutex
	sessions map[string]*Session
	byUser   map[string]string
}

// NewManager creates a session manager. vocab may be nil when no vocabulary storage is wired.
func NewManager(catalog *content.Catalog, tracker Tracker, results ResultRecorder, vocab *VocabularyBuilder, log *logger.Logger) *Manager {
	return &Manager{
		catalog:  catalog,
		tracker:  tracker,
		results:  results,
		vocab:    vocab,
		log:      log.With("service", "game"),
		now:      time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions: make(map[string]*Session),
		byUser:   make(map[string]string),
	}
}

// Start opens a session for a lesson the user has unlocked
func (m *Manager) Start(ctx context.Context, userID, lessonID string) (State, error) {
	lesson, err := m.catalog.Lesson(lessonID)
	if err != nil {
		return State{}, err
	}
	if lesson.GameID == "" {
		return State{}, fmt.Errorf("%w: lesson %q has no game", ErrUnknownGame, lessonID)
	}

	p, err := m.tracker.Load(ctx, userID, "")
	if err != nil {
		return State{}, fmt.Errorf("load progress: %w", err)
	}
	if !m.catalog.Available(lesson, p.UnlockedLevels) {
		return State{}, fmt.Errorf("%w: %s", ErrLessonLocked, lessonID)
	}

	pl, gameID, err := m.newPlay(ctx, lesson)
	if err != nil {
		return State{}, err
	}
	kind, _ := m.catalog.GameKind(lesson.GameID)

	s := &Session{
		id:       uuid.NewString(),
		userID:   userID,
		lessonID: lesson.ID,
		gameID:   gameID,
		kind:     string(kind),
		play:     pl,
		tracker:  m.tracker,
		now:      m.now,
	}

	m.mu.Lock()
	prev := m.sessions[m.byUser[userID]]
	m.mu.Unlock()
	if prev != nil {
		if err := m.End(ctx, userID, prev.id); err != nil {
			m.log.Warn("failed to end previous session", "session_id", prev.id, "error", err)
		}
	}

	if err := s.start(ctx); err != nil {
		return State{}, err
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.byUser[userID] = s.id
	m.mu.Unlock()

	m.log.Info("session started", "session_id", s.id, "user_id", userID, "lesson_id", lesson.ID, "game_id", gameID)
	return s.State(), nil
}

func (m *Manager) newPlay(ctx context.Context, lesson models.Lesson) (play, string, error) {
	kind, ok := m.catalog.GameKind(lesson.GameID)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownGame, lesson.GameID)
	}

	m.rndMu.Lock()
	rnd := rand.New(rand.NewSource(m.rnd.Int63()))
	m.rndMu.Unlock()

	switch kind {
	case content.KindQuiz:
		q, _ := m.catalog.Quiz(lesson.GameID)
		return newQuizPlay(q, rnd), q.ID, nil
	case content.KindRoleplay:
		rp, _ := m.catalog.Roleplay(lesson.GameID)
		return newRoleplayPlay(rp), rp.ID, nil
	case content.KindMatching:
		mt, _ := m.catalog.Matching(lesson.GameID)
		return newMatchingPlay(mt, rnd), mt.ID, nil
	case content.KindVocabulary:
		if m.vocab == nil {
			return nil, "", fmt.Errorf("%w: vocabulary storage not configured", ErrUnknownGame)
		}
		q, err := m.vocab.Build(ctx, lesson.Topic)
		if err != nil {
			return nil, "", err
		}
		return newQuizPlay(q, rnd), q.ID, nil
	}
	return nil, "", fmt.Errorf("%w: %s", ErrUnknownGame, lesson.GameID)
}

// get returns a session owned by userID
func (m *Manager) get(userID, sessionID string) (*Session, error) {
	m.mu.RLock()
	s := m.sessions[sessionID]
	m.mu.RUnlock()
	if s == nil || s.userID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// State returns the current state of a session
func (m *Manager) State(userID, sessionID string) (State, error) {
	s, err := m.get(userID, sessionID)
	if err != nil {
		return State{}, err
	}
	return s.State(), nil
}

// Answer submits an answer to a session
func (m *Manager) Answer(ctx context.Context, userID, sessionID string, a Answer) (Outcome, error) {
	s, err := m.get(userID, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	out, err := s.Answer(ctx, a)
	if err != nil {
		return Outcome{}, err
	}
	m.record(ctx, s, false)
	return out, nil
}

// Timeout reports that the current question ran out of time
func (m *Manager) Timeout(ctx context.Context, userID, sessionID string) (Outcome, error) {
	s, err := m.get(userID, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	out, err := s.Timeout(ctx)
	if err != nil {
		return Outcome{}, err
	}
	m.record(ctx, s, false)
	return out, nil
}

// Restart starts the session over with full lives
func (m *Manager) Restart(ctx context.Context, userID, sessionID string) (State, error) {
	s, err := m.get(userID, sessionID)
	if err != nil {
		return State{}, err
	}
	m.record(ctx, s, true)
	return s.Restart(ctx)
}

// End closes a session and restores lives
func (m *Manager) End(ctx context.Context, userID, sessionID string) error {
	s, err := m.get(userID, sessionID)
	if err != nil {
		return err
	}
	m.remove(s)
	m.record(ctx, s, true)
	return s.end(ctx)
}

// EndAll closes every session of a user
func (m *Manager) EndAll(ctx context.Context, userID string) {
	m.mu.RLock()
	id, ok := m.byUser[userID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	if err := m.End(ctx, userID, id); err != nil {
		m.log.Warn("failed to end session", "session_id", id, "error", err)
	}
}

// Shutdown ends every open session so lives are restored and results recorded
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.RLock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.RUnlock()

	for _, s := range open {
		if err := m.End(ctx, s.userID, s.id); err != nil {
			m.log.Warn("failed to end session", "session_id", s.id, "error", err)
		}
	}
}

// PruneIdle ends sessions with no activity for maxIdle and returns how many were dropped
func (m *Manager) PruneIdle(ctx context.Context, maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.RLock()
	var stale []*Session
	for _, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range stale {
		if err := m.End(ctx, s.userID, s.id); err != nil {
			m.log.Warn("failed to prune session", "session_id", s.id, "error", err)
		}
	}
	return len(stale)
}

// Active returns the number of open sessions
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s.id)
	if m.byUser[s.userID] == s.id {
		delete(m.byUser, s.userID)
	}
}

func (m *Manager) record(ctx context.Context, s *Session, abandoned bool) {
	if m.results == nil {
		return
	}
	result, ok := s.takeResult(abandoned)
	if !ok {
		return
	}
	if err := m.results.Create(ctx, &result); err != nil {
		m.log.Error("failed to record game result", "session_id", s.id, "error", err)
		return
	}
	m.log.Debug("game result recorded", "session_id", s.id, "outcome", result.Outcome, "score", result.Score)
}
