package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/hablo/internal/progress"
	"github.com/example/hablo/internal/speech"
	"github.com/example/hablo/pkg/models"
)

// play is the game-specific half of a session
type play interface {
	title() string
	timed() bool
	reset(now time.Time)
	answer(a Answer, now time.Time) (move, error)
	timeout(now time.Time) (move, error)
	finished() bool
	fill(st *State, now time.Time)
}

// move is what a play reports back for one answer
type move struct {
	correct  bool
	points   int
	loseLife bool
	// retry leaves score and lives untouched
	retry    bool
	feedback Feedback
	delay    time.Duration
	match    *speech.Match
	// commit advances the play and runs once the tracker accepted the move
	commit func()
}

// Session drives one bounded play session and checkpoints score, lives
// and completion into the tracker.
type Session struct {
	id       string
	userID   string
	lessonID string
	gameID   string
	kind     string
	play     play
	tracker  Tracker
	now      func() time.Time

	mu         sync.Mutex
	status     Status
	score      int
	correct    int
	incorrect  int
	lives      int
	feedback   *Feedback
	startedAt  time.Time
	lastActive time.Time
	completed  bool
	recorded   bool
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }

// start resets local state and forces lives back to the maximum
func (s *Session) start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked(ctx)
}

func (s *Session) resetLocked(ctx context.Context) error {
	now := s.now()
	s.status = StatusPlaying
	s.score, s.correct, s.incorrect = 0, 0, 0
	s.feedback = nil
	s.completed, s.recorded = false, false
	s.startedAt, s.lastActive = now, now
	s.play.reset(now)
	return s.refillLives(ctx)
}

// refillLives applies UpdateLives(MaxLives - current)
func (s *Session) refillLives(ctx context.Context) error {
	p, err := s.tracker.Load(ctx, s.userID, "")
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	if delta := progress.MaxLives - p.Lives; delta != 0 {
		if p, err = s.tracker.UpdateLives(ctx, s.userID, delta); err != nil {
			return fmt.Errorf("reset lives: %w", err)
		}
	}
	s.lives = p.Lives
	return nil
}

// State returns a snapshot for clients
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(s.now())
}

// Answer applies a learner answer
func (s *Session) Answer(ctx context.Context, a Answer) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPlaying {
		return Outcome{}, ErrSessionOver
	}
	now := s.now()
	mv, err := s.play.answer(a, now)
	if err != nil {
		return Outcome{}, err
	}
	return s.resolve(ctx, mv, now)
}

// Timeout applies an expired question timer
func (s *Session) Timeout(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPlaying {
		return Outcome{}, ErrSessionOver
	}
	now := s.now()
	mv, err := s.play.timeout(now)
	if err != nil {
		return Outcome{}, err
	}
	return s.resolve(ctx, mv, now)
}

// Restart begins a new attempt with full lives
func (s *Session) Restart(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resetLocked(ctx); err != nil {
		return State{}, err
	}
	return s.stateLocked(s.now()), nil
}

// end restores lives when the learner leaves
func (s *Session) end(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refillLives(ctx)
}

func (s *Session) resolve(ctx context.Context, mv move, now time.Time) (Outcome, error) {
	s.lastActive = now
	out := Outcome{
		Correct:      mv.correct,
		Points:       mv.points,
		Feedback:     mv.feedback,
		AdvanceAfter: mv.delay,
		AdvanceMS:    mv.delay.Milliseconds(),
		Match:        mv.match,
	}

	// A failed tracker write leaves the play on the same question.
	switch {
	case mv.retry:
	case mv.correct:
		if _, err := s.tracker.UpdateScore(ctx, s.userID, mv.points); err != nil {
			return Outcome{}, fmt.Errorf("update score: %w", err)
		}
		s.score += mv.points
		s.correct++
		out.Cue = cue(CueCorrect)
	case mv.loseLife:
		p, err := s.tracker.UpdateLives(ctx, s.userID, -1)
		if err != nil {
			return Outcome{}, fmt.Errorf("update lives: %w", err)
		}
		s.incorrect++
		s.lives = p.Lives
		out.Cue = cue(CueIncorrect)
		if s.lives <= progress.MinLives {
			s.status = StatusGameOver
		}
	}
	if mv.commit != nil {
		mv.commit()
	}

	if s.status == StatusPlaying && s.play.finished() {
		s.status = StatusLevelComplete
		if !s.completed {
			s.completed = true
			if _, err := s.tracker.CompleteLevel(ctx, s.userID, s.lessonID, s.score); err != nil {
				return Outcome{}, fmt.Errorf("complete level: %w", err)
			}
		}
		out.Cue = cue(CueLevelComplete)
	}

	fb := mv.feedback
	s.feedback = &fb
	out.State = s.stateLocked(now)
	return out, nil
}

func (s *Session) stateLocked(now time.Time) State {
	st := State{
		SessionID: s.id,
		LessonID:  s.lessonID,
		GameID:    s.gameID,
		Kind:      s.kind,
		Title:     s.play.title(),
		Status:    s.status,
		Score:     s.score,
		Lives:     s.lives,
		Correct:   s.correct,
		Incorrect: s.incorrect,
		Feedback:  s.feedback,
	}
	if s.status == StatusPlaying {
		s.play.fill(&st, now)
	}
	return st
}

// takeResult returns the finished attempt once
func (s *Session) takeResult(abandoned bool) (models.GameResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recorded {
		return models.GameResult{}, false
	}

	var outcome string
	switch {
	case s.status == StatusLevelComplete:
		outcome = models.OutcomeLevelComplete
	case s.status == StatusGameOver:
		outcome = models.OutcomeGameOver
	case abandoned && s.correct+s.incorrect > 0:
		outcome = models.OutcomeAbandoned
	default:
		return models.GameResult{}, false
	}
	s.recorded = true

	now := s.now()
	return models.GameResult{
		UserID:     s.userID,
		GameID:     s.gameID,
		LevelID:    s.lessonID,
		Outcome:    outcome,
		Score:      s.score,
		Correct:    s.correct,
		Incorrect:  s.incorrect,
		DurationMS: now.Sub(s.startedAt).Milliseconds(),
		PlayedAt:   now,
	}, true
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
