package progress

import (
	"time"

	"github.com/example/hablo/pkg/models"
)

type achievementRule struct {
	id          string
	name        string
	description string
	earned      func(p models.Progress) bool
}

var achievementRules = []achievementRule{
	{
		id:          "first_lesson",
		name:        "Primeros pasos",
		description: "Complete your first lesson",
		earned:      func(p models.Progress) bool { return len(p.CompletedLevels) >= 1 },
	},
	{
		id:          "five_lessons",
		name:        "Estudiante",
		description: "Complete five lessons",
		earned:      func(p models.Progress) bool { return len(p.CompletedLevels) >= 5 },
	},
	{
		id:          "score_100",
		name:        "Cien puntos",
		description: "Reach 100 points",
		earned:      func(p models.Progress) bool { return p.TotalScore >= 100 },
	},
	{
		id:          "score_1000",
		name:        "Mil puntos",
		description: "Reach 1000 points",
		earned:      func(p models.Progress) bool { return p.TotalScore >= 1000 },
	},
	{
		id:          "streak_3",
		name:        "En racha",
		description: "Play three days in a row",
		earned:      func(p models.Progress) bool { return p.Streak >= 3 },
	},
	{
		id:          "streak_7",
		name:        "Semana perfecta",
		description: "Play seven days in a row",
		earned:      func(p models.Progress) bool { return p.Streak >= 7 },
	},
}

// awardAchievements appends newly earned achievements. Earned ones are never revoked.
func awardAchievements(p models.Progress, now time.Time) models.Progress {
	for _, rule := range achievementRules {
		if hasAchievement(p, rule.id) || !rule.earned(p) {
			continue
		}
		date := now.UTC()
		p.Achievements = append(p.Achievements, models.Achievement{
			ID:          rule.id,
			Name:        rule.name,
			Description: rule.description,
			Unlocked:    true,
			Date:        &date,
		})
	}
	return p
}

func hasAchievement(p models.Progress, id string) bool {
	for _, a := range p.Achievements {
		if a.ID == id && a.Unlocked {
			return true
		}
	}
	return false
}
