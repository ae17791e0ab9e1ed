package progress

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/example/hablo/internal/logger"
	"github.com/example/hablo/pkg/models"
)

// ErrPersisterClosed is returned by Flush when the latest write for the
// user arrived after Close and was dropped
var ErrPersisterClosed = errors.New("persister closed")

// Writer stores a full progress record for a user
type Writer interface {
	WriteProgress(ctx context.Context, userID string, p models.Progress) error
}

type waiter struct {
	version uint64
	done    chan error
}

type queue struct {
	pending *models.Progress
	version uint64
	written uint64
	running bool
	lastErr error
	dropped bool
	waiters []waiter
}

// Persister writes progress records behind the caller. Each user has at
// most one write in flight; snapshots queued while a write runs replace
// each other so only the latest one is written next.
type Persister struct {
	w            Writer
	log          *logger.Logger
	writeTimeout time.Duration

	mu     sync.Mutex
	queues map[string]*queue
	closed bool
	wg     sync.WaitGroup
}

// NewPersister creates a persister around w
func NewPersister(w Writer, writeTimeout time.Duration, log *logger.Logger) *Persister {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Persister{
		w:            w,
		log:          log.With("service", "progress_persister"),
		writeTimeout: writeTimeout,
		queues:       make(map[string]*queue),
	}
}

// Enqueue schedules p to be written for userID
func (ps *Persister) Enqueue(userID string, p models.Progress) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	q := ps.queues[userID]
	if q == nil {
		q = &queue{}
		ps.queues[userID] = q
	}
	if ps.closed {
		q.dropped = true
		ps.log.Warn("dropping progress write after close", "user_id", userID)
		return
	}
	snap := p.Clone()
	q.pending = &snap
	q.version++

	if !q.running {
		q.running = true
		ps.wg.Add(1)
		go ps.run(userID, q)
	}
}

// Flush waits until everything enqueued for userID so far has been
// written and returns the error of the write that covered it.
func (ps *Persister) Flush(ctx context.Context, userID string) error {
	ps.mu.Lock()
	q := ps.queues[userID]
	if q != nil && q.dropped {
		ps.mu.Unlock()
		return ErrPersisterClosed
	}
	if q == nil || q.written >= q.version {
		var err error
		if q != nil {
			err = q.lastErr
		}
		ps.mu.Unlock()
		return err
	}
	w := waiter{version: q.version, done: make(chan error, 1)}
	q.waiters = append(q.waiters, w)
	ps.mu.Unlock()

	select {
	case err := <-w.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting writes and waits for queued ones to finish
func (ps *Persister) Close(ctx context.Context) error {
	ps.mu.Lock()
	ps.closed = true
	ps.mu.Unlock()

	done := make(chan struct{})
	go func() {
		ps.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (ps *Persister) run(userID string, q *queue) {
	defer ps.wg.Done()

	for {
		ps.mu.Lock()
		if q.pending == nil {
			q.running = false
			ps.mu.Unlock()
			return
		}
		snap := *q.pending
		version := q.version
		q.pending = nil
		ps.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), ps.writeTimeout)
		err := ps.w.WriteProgress(ctx, userID, snap)
		cancel()
		if err != nil {
			ps.log.Error("failed to persist progress", "user_id", userID, "error", err)
		}

		ps.mu.Lock()
		q.written = version
		q.lastErr = err
		remaining := q.waiters[:0]
		for _, w := range q.waiters {
			if w.version <= version {
				w.done <- err
				continue
			}
			remaining = append(remaining, w)
		}
		q.waiters = remaining
		ps.mu.Unlock()
	}
}
