package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/example/hablo/internal/database"
	"github.com/example/hablo/internal/logger"
	"github.com/example/hablo/internal/notify"
	"github.com/example/hablo/pkg/models"
	"github.com/go-co-op/gocron"
)

const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// Config controls the background jobs
type Config struct {
	NotificationStartHour int
	NotificationEndHour   int
	SessionIdleTimeout    time.Duration
	// Time of day (HH:MM, UTC) when stale streaks are reset
	StreakSweepAt string
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		NotificationStartHour: DefaultNotificationStartHour,
		NotificationEndHour:   DefaultNotificationEndHour,
		SessionIdleTimeout:    30 * time.Minute,
		StreakSweepAt:         "00:05",
	}
}

// UserSource finds users who want a reminder at a given hour
type UserSource interface {
	GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error)
}

// ProgressSource exposes game progress
type ProgressSource interface {
	Peek(ctx context.Context, userID string) (models.Progress, bool, error)
	ExpireStreaks(ctx context.Context) (int, error)
}

// CardStats reports flashcards due for a user
type CardStats interface {
	Stats(ctx context.Context, userID string) (*database.FlashcardStats, error)
}

// SessionPruner drops abandoned game sessions
type SessionPruner interface {
	PruneIdle(ctx context.Context, maxIdle time.Duration) int
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	cron     *gocron.Scheduler
	cfg      Config
	users    UserSource
	progress ProgressSource
	cards    CardStats
	sessions SessionPruner
	notifier notify.Notifier
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new scheduler instance
func New(cfg Config, users UserSource, progress ProgressSource, cards CardStats, sessions SessionPruner, notifier notify.Notifier, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:     gocron.NewScheduler(time.UTC),
		cfg:      cfg,
		users:    users,
		progress: progress,
		cards:    cards,
		sessions: sessions,
		notifier: notifier,
		log:      log.With("service", "scheduler"),
		now:      time.Now,
	}
}

// Start registers the jobs and runs them in the background until ctx is done or Stop is called
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.Every(1).Hour().Do(func() { s.SendReminders(ctx) }); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}
	if _, err := s.cron.Every(1).Day().At(s.cfg.StreakSweepAt).Do(func() { s.ExpireStreaks(ctx) }); err != nil {
		return fmt.Errorf("schedule streak sweep: %w", err)
	}
	if _, err := s.cron.Every(5).Minutes().Do(func() { s.PruneSessions(ctx) }); err != nil {
		return fmt.Errorf("schedule session pruning: %w", err)
	}
	s.cron.StartAsync()
	s.log.Info("scheduler started", "jobs", len(s.cron.Jobs()))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("scheduler stopped")
}

// SendReminders messages users whose reminder hour is now and who have not
// played today. It returns how many reminders were sent.
func (s *Scheduler) SendReminders(ctx context.Context) int {
	now := s.now().UTC()
	hour := now.Hour()
	if hour < s.cfg.NotificationStartHour || hour > s.cfg.NotificationEndHour {
		s.log.Debug("outside notification hours, skipping reminders",
			"hour", hour, "start", s.cfg.NotificationStartHour, "end", s.cfg.NotificationEndHour)
		return 0
	}

	users, err := s.users.GetUsersForNotification(ctx, hour)
	if err != nil {
		s.log.Error("failed to get users for notification", "error", err)
		return 0
	}

	sent := 0
	for _, user := range users {
		if user.TelegramChatID == nil {
			continue
		}
		p, found, err := s.progress.Peek(ctx, user.ID)
		if err != nil {
			s.log.Warn("failed to read progress", "user_id", user.ID, "error", err)
			continue
		}
		if found && playedOn(p.LastPlayed, now) {
			continue
		}

		r := notify.Reminder{UserID: user.ID, ChatID: *user.TelegramChatID, Streak: p.Streak}
		if s.cards != nil {
			if stats, err := s.cards.Stats(ctx, user.ID); err == nil {
				r.DueCards = stats.DueToday
			}
		}
		if err := s.notifier.SendReminder(ctx, r); err != nil {
			s.log.Error("failed to send reminder", "user_id", user.ID, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// ExpireStreaks resets streaks of users who skipped a day
func (s *Scheduler) ExpireStreaks(ctx context.Context) int {
	n, err := s.progress.ExpireStreaks(ctx)
	if err != nil {
		s.log.Error("streak sweep failed", "error", err)
	}
	if n > 0 {
		s.log.Info("streaks expired", "count", n)
	}
	return n
}

// PruneSessions ends sessions idle for longer than the configured timeout
func (s *Scheduler) PruneSessions(ctx context.Context) int {
	n := s.sessions.PruneIdle(ctx, s.cfg.SessionIdleTimeout)
	if n > 0 {
		s.log.Info("idle sessions pruned", "count", n)
	}
	return n
}

func playedOn(last, now time.Time) bool {
	if last.IsZero() {
		return false
	}
	y1, m1, d1 := last.UTC().Date()
	y2, m2, d2 := now.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
