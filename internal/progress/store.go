package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/hablo/internal/database"
	"github.com/example/hablo/internal/logger"
	"github.com/example/hablo/pkg/models"
)

const (
	// Collection holds one document per user
	Collection = "users"
	// Field is the document field the progress record lives in
	Field = "gameProgress"
)

// DocumentStore is the remote key-value store progress is kept in
type DocumentStore interface {
	Get(ctx context.Context, collection, key string) (database.Document, error)
	Set(ctx context.Context, collection, key string, fields map[string]interface{}, merge bool) error
	Update(ctx context.Context, collection, key string, fields map[string]interface{}) error
	Keys(ctx context.Context, collection string) ([]string, error)
}

// SuccessorFunc returns the level ids unlocked by completing levelID
type SuccessorFunc func(levelID string) []string

// DocumentWriter writes progress into the gameProgress field of the user
// document, creating the document if it has gone missing.
type DocumentWriter struct {
	Docs DocumentStore
}

func (w DocumentWriter) WriteProgress(ctx context.Context, userID string, p models.Progress) error {
	fields := map[string]interface{}{Field: p}
	err := w.Docs.Update(ctx, Collection, userID, fields)
	if errors.Is(err, database.ErrNotFound) {
		return w.Docs.Set(ctx, Collection, userID, fields, true)
	}
	return err
}

type entry struct {
	mu     sync.Mutex
	loaded bool
	p      models.Progress
	subs   map[int]chan models.Progress
	nextID int
}

// Store keeps the in-memory progress record of every active user. Each
// mutation runs a reducer under the user's lock, queues a persist and
// notifies subscribers.
type Store struct {
	docs       DocumentStore
	persister  *Persister
	successors SuccessorFunc
	log        *logger.Logger
	now        func() time.Time

	mu    sync.Mutex
	users map[string]*entry
}

// NewStore creates a progress store
func NewStore(docs DocumentStore, persister *Persister, successors SuccessorFunc, log *logger.Logger) *Store {
	return &Store{
		docs:       docs,
		persister:  persister,
		successors: successors,
		log:        log.With("service", "progress"),
		now:        time.Now,
		users:      make(map[string]*entry),
	}
}

// Load reads the user's record into memory, creating the default record
// when none exists. Lives always start full. Records already in memory are
// returned as is.
func (s *Store) Load(ctx context.Context, userID, email string) (models.Progress, error) {
	e := s.lock(userID)
	defer e.mu.Unlock()
	if err := s.ensureLoaded(ctx, userID, email, e); err != nil {
		return models.Progress{}, err
	}
	return e.p.Clone(), nil
}

// Snapshot returns a copy of the record held in memory
func (s *Store) Snapshot(userID string) (models.Progress, bool) {
	s.mu.Lock()
	e := s.users[userID]
	s.mu.Unlock()
	if e == nil {
		return models.Progress{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return models.Progress{}, false
	}
	return e.p.Clone(), true
}

// Peek returns the in-memory record or reads it from storage without caching it
func (s *Store) Peek(ctx context.Context, userID string) (models.Progress, bool, error) {
	if p, ok := s.Snapshot(userID); ok {
		return p, true, nil
	}
	return s.read(ctx, userID)
}

// UpdateScore adds points to totalScore
func (s *Store) UpdateScore(ctx context.Context, userID string, points int) (models.Progress, error) {
	return s.apply(ctx, userID, func(p models.Progress) models.Progress {
		return AddScore(p, points, s.now())
	})
}

// UpdateLives adds delta to lives, clamped to [MinLives, MaxLives]
func (s *Store) UpdateLives(ctx context.Context, userID string, delta int) (models.Progress, error) {
	return s.apply(ctx, userID, func(p models.Progress) models.Progress {
		return AddLives(p, delta)
	})
}

// UnlockLevel appends levelID to the unlocked levels
func (s *Store) UnlockLevel(ctx context.Context, userID, levelID string) (models.Progress, error) {
	return s.apply(ctx, userID, func(p models.Progress) models.Progress {
		return Unlock(p, levelID)
	})
}

// CompleteLevel adds score and records the completion with its unlocks
func (s *Store) CompleteLevel(ctx context.Context, userID, levelID string, score int) (models.Progress, error) {
	var next []string
	if s.successors != nil {
		next = s.successors(levelID)
	}
	return s.apply(ctx, userID, func(p models.Progress) models.Progress {
		return Complete(p, levelID, score, next, s.now())
	})
}

// ResetProgress replaces the record with the default one
func (s *Store) ResetProgress(ctx context.Context, userID string) (models.Progress, error) {
	return s.apply(ctx, userID, func(models.Progress) models.Progress {
		return Default(s.now())
	})
}

// Flush waits for the latest queued write of userID
func (s *Store) Flush(ctx context.Context, userID string) error {
	return s.persister.Flush(ctx, userID)
}

// Subscribe streams every new record of userID, starting with the current
// one. Slow readers only see the latest record.
func (s *Store) Subscribe(ctx context.Context, userID string) (<-chan models.Progress, func(), error) {
	e := s.lock(userID)
	defer e.mu.Unlock()
	if err := s.ensureLoaded(ctx, userID, "", e); err != nil {
		return nil, nil, err
	}

	ch := make(chan models.Progress, 1)
	ch <- e.p.Clone()
	id := e.nextID
	e.nextID++
	if e.subs == nil {
		e.subs = make(map[int]chan models.Progress)
	}
	e.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.subs, id)
			close(ch)
		})
	}
	return ch, cancel, nil
}

// Forget drops the in-memory record once its writes are flushed
func (s *Store) Forget(ctx context.Context, userID string) error {
	if err := s.persister.Flush(ctx, userID); err != nil {
		return err
	}
	s.mu.Lock()
	e := s.users[userID]
	s.mu.Unlock()
	if e == nil {
		return nil
	}
	e.mu.Lock()
	if len(e.subs) == 0 {
		s.drop(userID, e)
	}
	e.mu.Unlock()
	return nil
}

// ExpireStreaks resets the streak of every user who skipped a day and
// returns how many records changed.
func (s *Store) ExpireStreaks(ctx context.Context) (int, error) {
	keys, err := s.docs.Keys(ctx, Collection)
	if err != nil {
		return 0, fmt.Errorf("list progress documents: %w", err)
	}

	now := s.now()
	changed := 0
	for _, userID := range keys {
		if err := ctx.Err(); err != nil {
			return changed, err
		}

		e := s.lock(userID)
		if s.expireLocked(ctx, userID, e, now) {
			changed++
		}
		if !e.loaded && len(e.subs) == 0 {
			s.drop(userID, e)
		}
		e.mu.Unlock()
	}
	return changed, nil
}

// expireLocked must be called with e.mu held. Records not in memory are
// read and written back without being cached.
func (s *Store) expireLocked(ctx context.Context, userID string, e *entry, now time.Time) bool {
	if e.loaded {
		next, ok := ExpireStreak(e.p, now)
		if ok {
			s.commit(userID, e, next)
		}
		return ok
	}

	p, found, err := s.read(ctx, userID)
	if err != nil {
		s.log.Warn("skipping streak check", "user_id", userID, "error", err)
		return false
	}
	if !found {
		return false
	}
	next, ok := ExpireStreak(p, now)
	if ok {
		s.persister.Enqueue(userID, next)
	}
	return ok
}

func (s *Store) entry(userID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.users[userID]
	if e == nil {
		e = &entry{}
		s.users[userID] = e
	}
	return e
}

// lock returns the current entry of userID with e.mu held. An entry
// dropped while we waited for its lock is retried.
func (s *Store) lock(userID string) *entry {
	for {
		e := s.entry(userID)
		e.mu.Lock()
		s.mu.Lock()
		current := s.users[userID] == e
		s.mu.Unlock()
		if current {
			return e
		}
		e.mu.Unlock()
	}
}

// drop must be called with e.mu held
func (s *Store) drop(userID string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users[userID] == e {
		delete(s.users, userID)
	}
}

func (s *Store) apply(ctx context.Context, userID string, reduce func(models.Progress) models.Progress) (models.Progress, error) {
	e := s.lock(userID)
	defer e.mu.Unlock()
	if err := s.ensureLoaded(ctx, userID, "", e); err != nil {
		return models.Progress{}, err
	}
	next := reduce(e.p)
	s.commit(userID, e, next)
	return next.Clone(), nil
}

// commit must be called with e.mu held
func (s *Store) commit(userID string, e *entry, next models.Progress) {
	e.p = next
	s.persister.Enqueue(userID, next)
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		ch <- next.Clone()
	}
}

// ensureLoaded must be called with e.mu held
func (s *Store) ensureLoaded(ctx context.Context, userID, email string, e *entry) error {
	if e.loaded {
		return nil
	}
	if userID == "" {
		return errors.New("empty user id")
	}

	// Writes queued while the record was out of memory land before the read.
	if err := s.persister.Flush(ctx, userID); err != nil {
		s.log.Warn("loading progress over a failed write", "user_id", userID, "error", err)
	}
	p, found, err := s.read(ctx, userID)
	switch {
	case err != nil:
		s.log.Error("failed to load progress, using defaults", "user_id", userID, "error", err)
		p = Default(s.now())
	case !found:
		p = Default(s.now())
		s.create(ctx, userID, email, p)
	}

	e.p = ResetLives(p)
	e.loaded = true
	return nil
}

func (s *Store) create(ctx context.Context, userID, email string, p models.Progress) {
	fields := map[string]interface{}{
		Field:       p,
		"createdAt": s.now().UTC(),
	}
	if email != "" {
		fields["email"] = email
	}
	if err := s.docs.Set(ctx, Collection, userID, fields, true); err != nil {
		s.log.Error("failed to create progress document", "user_id", userID, "error", err)
		return
	}
	s.log.Info("created progress record", "user_id", userID)
}

func (s *Store) read(ctx context.Context, userID string) (models.Progress, bool, error) {
	doc, err := s.docs.Get(ctx, Collection, userID)
	if errors.Is(err, database.ErrNotFound) {
		return models.Progress{}, false, nil
	}
	if err != nil {
		return models.Progress{}, false, err
	}
	raw, ok := doc[Field]
	if !ok || string(raw) == "null" {
		return models.Progress{}, false, nil
	}
	var p models.Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.Progress{}, false, fmt.Errorf("decode progress of %s: %w", userID, err)
	}
	return Normalize(p, s.now()), true, nil
}
