package game

import (
	"context"
	"errors"
	"time"

	"github.com/example/hablo/internal/speech"
	"github.com/example/hablo/pkg/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionOver     = errors.New("session is over")
	ErrUnknownGame     = errors.New("unknown game")
	ErrLessonLocked    = errors.New("lesson is locked")
	ErrInvalidAnswer   = errors.New("invalid answer")
	ErrNotTimed        = errors.New("game has no timer")
	ErrNoWords         = errors.New("not enough words for a quiz")
)

const (
	CorrectDelay   = 1000 * time.Millisecond
	IncorrectDelay = 1500 * time.Millisecond
	CueVolume      = 0.5
)

// Tracker is the slice of the progress store a session checkpoints into
type Tracker interface {
	Load(ctx context.Context, userID, email string) (models.Progress, error)
	UpdateScore(ctx context.Context, userID string, points int) (models.Progress, error)
	UpdateLives(ctx context.Context, userID string, delta int) (models.Progress, error)
	CompleteLevel(ctx context.Context, userID, levelID string, score int) (models.Progress, error)
}

// Status is where a session stands
type Status string

const (
	StatusPlaying       Status = "playing"
	StatusLevelComplete Status = "level_complete"
	StatusGameOver      Status = "game_over"
)

// Cue names a sound effect the client plays
type Cue string

const (
	CueCorrect       Cue = "correct"
	CueIncorrect     Cue = "incorrect"
	CueLevelComplete Cue = "level_complete"
)

// AudioCue is a fire-and-forget sound effect
type AudioCue struct {
	Name   Cue     `json:"name"`
	Volume float64 `json:"volume"`
}

func cue(name Cue) *AudioCue {
	return &AudioCue{Name: name, Volume: CueVolume}
}

// FeedbackKind classifies feedback text
type FeedbackKind string

const (
	FeedbackCorrect   FeedbackKind = "correct"
	FeedbackIncorrect FeedbackKind = "incorrect"
	FeedbackRetry     FeedbackKind = "retry"
)

// Feedback is the message shown after an answer
type Feedback struct {
	Text string       `json:"text"`
	Kind FeedbackKind `json:"kind"`
}

// Answer is what the learner submitted. Choice selects an option, Text
// is a typed answer, Transcript is recognized speech, First and Second
// are two card ids.
type Answer struct {
	Choice     *int   `json:"choice,omitempty"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	First      string `json:"first,omitempty"`
	Second     string `json:"second,omitempty"`
}

// Outcome is the result of one answer or timeout
type Outcome struct {
	Correct      bool          `json:"correct"`
	Points       int           `json:"points"`
	Feedback     Feedback      `json:"feedback"`
	Cue          *AudioCue     `json:"cue,omitempty"`
	AdvanceAfter time.Duration `json:"-"`
	AdvanceMS    int64         `json:"advance_after_ms"`
	Match        *speech.Match `json:"match,omitempty"`
	State        State         `json:"state"`
}

// QuestionView is the current quiz prompt
type QuestionView struct {
	Index         int               `json:"index"`
	Total         int               `json:"total"`
	Prompt        string            `json:"prompt"`
	Spanish       string            `json:"spanish,omitempty"`
	English       string            `json:"english,omitempty"`
	Pronunciation string            `json:"pronunciation,omitempty"`
	Passage       string            `json:"passage,omitempty"`
	Options       []string          `json:"options"`
	FreeText      bool              `json:"free_text,omitempty"`
	RemainingMS   int64             `json:"remaining_ms,omitempty"`
	Utterance     *speech.Utterance `json:"utterance,omitempty"`
}

// StepView is the current roleplay line
type StepView struct {
	ID        string            `json:"id"`
	NPC       string            `json:"npc"`
	Hint      string            `json:"hint,omitempty"`
	Options   []string          `json:"options"`
	Utterance *speech.Utterance `json:"utterance,omitempty"`
}

// CardView is one face-up or face-down card of a matching game
type CardView struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	Lang          string `json:"lang"`
	Pronunciation string `json:"pronunciation,omitempty"`
	Matched       bool   `json:"matched"`
}

// State is a snapshot of a session for clients
type State struct {
	SessionID string        `json:"session_id"`
	LessonID  string        `json:"lesson_id"`
	GameID    string        `json:"game_id"`
	Kind      string        `json:"kind"`
	Title     string        `json:"title"`
	Status    Status        `json:"status"`
	Score     int           `json:"score"`
	Lives     int           `json:"lives"`
	Correct   int           `json:"correct"`
	Incorrect int           `json:"incorrect"`
	Feedback  *Feedback     `json:"feedback,omitempty"`
	Question  *QuestionView `json:"question,omitempty"`
	Step      *StepView     `json:"step,omitempty"`
	Cards     []CardView    `json:"cards,omitempty"`
	Pairs     int           `json:"pairs,omitempty"`
	Matched   int           `json:"matched,omitempty"`
}
