package models

import "time"

// Achievement is a badge a learner can unlock
type Achievement struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Unlocked    bool       `json:"unlocked"`
	Date        *time.Time `json:"date,omitempty"`
}

// Progress is the durable per-user game progress record
type Progress struct {
	CurrentLevel    int           `json:"currentLevel"`
	TotalScore      int           `json:"totalScore"`
	Lives           int           `json:"lives"`
	Achievements    []Achievement `json:"achievements"`
	UnlockedLevels  []string      `json:"unlockedLevels"`
	CompletedLevels []string      `json:"completedLevels"`
	Streak          int           `json:"streak"`
	LastPlayed      time.Time     `json:"lastPlayed"`
}

// Clone returns a deep copy so snapshots never share slices with the live record
func (p Progress) Clone() Progress {
	c := p
	c.Achievements = append([]Achievement(nil), p.Achievements...)
	c.UnlockedLevels = append([]string(nil), p.UnlockedLevels...)
	c.CompletedLevels = append([]string(nil), p.CompletedLevels...)
	if c.Achievements == nil {
		c.Achievements = []Achievement{}
	}
	if c.UnlockedLevels == nil {
		c.UnlockedLevels = []string{}
	}
	if c.CompletedLevels == nil {
		c.CompletedLevels = []string{}
	}
	return c
}

// HasCompleted reports whether levelID is in CompletedLevels
func (p Progress) HasCompleted(levelID string) bool {
	for _, id := range p.CompletedLevels {
		if id == levelID {
			return true
		}
	}
	return false
}

// HasUnlocked reports whether levelID is in UnlockedLevels
func (p Progress) HasUnlocked(levelID string) bool {
	for _, id := range p.UnlockedLevels {
		if id == levelID {
			return true
		}
	}
	return false
}
