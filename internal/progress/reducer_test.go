package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var day0 = time.Date(2026, time.May, 4, 9, 30, 0, 0, time.UTC)

func successorsOf(levelID string) []string {
	switch levelID {
	case "level2":
		return []string{"level3"}
	case "level7":
		return []string{"level8"}
	}
	return nil
}

func TestLivesClamp(t *testing.T) {
	p := Default(day0)
	assert.Equal(t, 3, p.Lives)

	p = AddLives(p, -5)
	assert.Equal(t, 0, p.Lives)

	p = AddLives(p, 10)
	assert.Equal(t, 3, p.Lives)

	for _, delta := range []int{-1, -1, 2, -7, 1, 1, 1, 1, -2} {
		p = AddLives(p, delta)
		assert.GreaterOrEqual(t, p.Lives, MinLives)
		assert.LessOrEqual(t, p.Lives, MaxLives)
	}
}

func TestScoreMonotonic(t *testing.T) {
	p := Default(day0)
	for _, pts := range []int{0, 10, 13, 1, 250} {
		before := p.TotalScore
		p = AddScore(p, pts, day0)
		assert.Equal(t, before+pts, p.TotalScore)
	}
}

func TestCompleteLevelDeduplicatesMembershipOnly(t *testing.T) {
	p := Default(day0)
	p = Complete(p, "level2", 50, successorsOf("level2"), day0)
	p = Complete(p, "level2", 50, successorsOf("level2"), day0)

	assert.Equal(t, []string{"level2"}, p.CompletedLevels)
	assert.Equal(t, []string{"level1", "level3"}, p.UnlockedLevels)
	assert.Equal(t, 100, p.TotalScore)
	assert.Equal(t, 2, p.CurrentLevel)
}

func TestCompleteUnlocksSuccessor(t *testing.T) {
	p := Complete(Default(day0), "level7", 0, successorsOf("level7"), day0)
	assert.Contains(t, p.UnlockedLevels, "level8")

	p = Complete(Default(day0), "roleplay_restaurant", 0, successorsOf("roleplay_restaurant"), day0)
	assert.Equal(t, []string{"level1"}, p.UnlockedLevels)
	assert.Equal(t, []string{"roleplay_restaurant"}, p.CompletedLevels)
}

func TestUnlockDoesNotDeduplicate(t *testing.T) {
	p := Unlock(Default(day0), "level1")
	assert.Equal(t, []string{"level1", "level1"}, p.UnlockedLevels)
}

func TestDefaultRecord(t *testing.T) {
	p := Default(day0)
	assert.Equal(t, 1, p.CurrentLevel)
	assert.Equal(t, 0, p.TotalScore)
	assert.Equal(t, 3, p.Lives)
	assert.Equal(t, []string{"level1"}, p.UnlockedLevels)
	assert.Empty(t, p.CompletedLevels)
	assert.NotNil(t, p.CompletedLevels)
	assert.Empty(t, p.Achievements)
	assert.Equal(t, 0, p.Streak)
	assert.Equal(t, day0, p.LastPlayed)
}

func TestReducersDoNotAliasInput(t *testing.T) {
	p := Default(day0)
	next := Unlock(p, "level2")
	next.UnlockedLevels[0] = "changed"
	assert.Equal(t, []string{"level1"}, p.UnlockedLevels)
}

func TestStreak(t *testing.T) {
	p := AddScore(Default(day0), 10, day0)
	assert.Equal(t, 1, p.Streak)

	p = AddScore(p, 10, day0.Add(2*time.Hour))
	assert.Equal(t, 1, p.Streak)

	p = AddScore(p, 10, day0.AddDate(0, 0, 1))
	p = AddScore(p, 10, day0.AddDate(0, 0, 2))
	assert.Equal(t, 3, p.Streak)
	assert.Equal(t, day0.AddDate(0, 0, 2), p.LastPlayed)

	_, changed := ExpireStreak(p, day0.AddDate(0, 0, 3))
	assert.False(t, changed)

	expired, changed := ExpireStreak(p, day0.AddDate(0, 0, 4))
	assert.True(t, changed)
	assert.Equal(t, 0, expired.Streak)

	p = AddScore(p, 10, day0.AddDate(0, 0, 5))
	assert.Equal(t, 1, p.Streak)
}

func TestAchievements(t *testing.T) {
	p := Complete(Default(day0), "level1", 120, nil, day0)

	ids := make([]string, 0, len(p.Achievements))
	for _, a := range p.Achievements {
		ids = append(ids, a.ID)
		assert.True(t, a.Unlocked)
		assert.NotNil(t, a.Date)
	}
	assert.ElementsMatch(t, []string{"first_lesson", "score_100"}, ids)

	p = Complete(p, "level2", 10, nil, day0)
	assert.Len(t, p.Achievements, 2)
}

func TestNormalize(t *testing.T) {
	p := Default(day0)
	p.Lives = 9
	p.CurrentLevel = 0
	p.UnlockedLevels = nil

	n := Normalize(p, day0)
	assert.Equal(t, 3, n.Lives)
	assert.Equal(t, 1, n.CurrentLevel)
	assert.Equal(t, []string{"level1"}, n.UnlockedLevels)
}
