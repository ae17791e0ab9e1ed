package progress

import (
	"time"

	"github.com/example/hablo/pkg/models"
)

const (
	MinLives     = 0
	MaxLives     = 3
	FirstLevelID = "level1"
)

// Default returns the record a user starts with
func Default(now time.Time) models.Progress {
	return models.Progress{
		CurrentLevel:    1,
		TotalScore:      0,
		Lives:           MaxLives,
		Achievements:    []models.Achievement{},
		UnlockedLevels:  []string{FirstLevelID},
		CompletedLevels: []string{},
		Streak:          0,
		LastPlayed:      now.UTC(),
	}
}

// AddScore adds points to the total. Points are not validated.
func AddScore(p models.Progress, points int, now time.Time) models.Progress {
	next := p.Clone()
	next.TotalScore += points
	next = touch(next, now)
	return awardAchievements(next, now)
}

// AddLives adds delta to lives and clamps the result
func AddLives(p models.Progress, delta int) models.Progress {
	next := p.Clone()
	next.Lives = clampLives(next.Lives + delta)
	return next
}

// Unlock appends levelID to the unlocked list without deduplication
func Unlock(p models.Progress, levelID string) models.Progress {
	next := p.Clone()
	next.UnlockedLevels = append(next.UnlockedLevels, levelID)
	return next
}

// Complete adds score, unlocks the successors that are not yet unlocked
// and records levelID as completed once.
func Complete(p models.Progress, levelID string, score int, successors []string, now time.Time) models.Progress {
	next := p.Clone()
	next.TotalScore += score

	for _, id := range successors {
		if !next.HasUnlocked(id) {
			next.UnlockedLevels = append(next.UnlockedLevels, id)
		}
	}
	if !next.HasCompleted(levelID) {
		next.CompletedLevels = append(next.CompletedLevels, levelID)
		if lvl := len(next.CompletedLevels) + 1; lvl > next.CurrentLevel {
			next.CurrentLevel = lvl
		}
	}

	next = touch(next, now)
	return awardAchievements(next, now)
}

// ResetLives puts lives back to the maximum
func ResetLives(p models.Progress) models.Progress {
	return AddLives(p, MaxLives-p.Lives)
}

// ExpireStreak zeroes the streak when the learner skipped a whole day
func ExpireStreak(p models.Progress, now time.Time) (models.Progress, bool) {
	if p.Streak == 0 || p.LastPlayed.IsZero() {
		return p, false
	}
	if daysBetween(p.LastPlayed, now) <= 1 {
		return p, false
	}
	next := p.Clone()
	next.Streak = 0
	return next, true
}

// Normalize repairs a record read from storage
func Normalize(p models.Progress, now time.Time) models.Progress {
	next := p.Clone()
	if next.CurrentLevel < 1 {
		next.CurrentLevel = 1
	}
	if next.TotalScore < 0 {
		next.TotalScore = 0
	}
	if len(next.UnlockedLevels) == 0 {
		next.UnlockedLevels = []string{FirstLevelID}
	}
	if next.LastPlayed.IsZero() {
		next.LastPlayed = now.UTC()
	}
	next.Lives = clampLives(next.Lives)
	return next
}

func clampLives(n int) int {
	if n < MinLives {
		return MinLives
	}
	if n > MaxLives {
		return MaxLives
	}
	return n
}

// touch advances the daily streak and stamps LastPlayed
func touch(p models.Progress, now time.Time) models.Progress {
	switch days := daysBetween(p.LastPlayed, now); {
	case p.Streak == 0:
		p.Streak = 1
	case days == 1:
		p.Streak++
	case days > 1:
		p.Streak = 1
	}
	p.LastPlayed = now.UTC()
	return p
}

// daysBetween counts calendar days in UTC from a to b
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
