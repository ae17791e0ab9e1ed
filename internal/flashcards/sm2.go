package flashcards

import (
	"sort"
	"time"

	"github.com/example/hablo/pkg/models"
)

// SM2 implements the SuperMemo-2 algorithm for spaced repetition
type SM2 struct {
	// Answers at or above this quality count as recalled
	PassThreshold Quality
	// Longest interval in days
	MaxInterval int
	// Fixed intervals in days for the first repetitions
	InitialIntervals []int
}

// NewSM2 creates an SM2 with default settings
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold:    QualityCorrectDifficult,
		MaxInterval:      365,
		InitialIntervals: []int{0, 1, 2, 3, 7, 10, 15, 20, 30},
	}
}

// Quality is the 0-5 self-rating of a recall
type Quality int

const (
	// Complete blackout, unable to recall
	QualityBlackout Quality = 0
	// Incorrect response but remembered upon seeing the correct answer
	QualityIncorrect Quality = 1
	// Incorrect response but the correct answer felt familiar
	QualityIncorrectFamiliar Quality = 2
	// Correct response but required significant effort
	QualityCorrectDifficult Quality = 3
	// Correct response after some hesitation
	QualityCorrectHesitation Quality = 4
	// Perfect response with no hesitation
	QualityPerfect Quality = 5
)

const (
	defaultEasiness = 2.5
	minEasiness     = 1.3
)

// Valid reports whether q is within 0-5
func (q Quality) Valid() bool {
	return q >= QualityBlackout && q <= QualityPerfect
}

// NewProgress returns the state of a word that was never reviewed
func NewProgress(userID string, wordID int64, now time.Time) *models.WordProgress {
	return &models.WordProgress{
		UserID:         userID,
		WordID:         wordID,
		LastReviewDate: now,
		NextReviewDate: now,
		Interval:       1,
		EasinessFactor: defaultEasiness,
	}
}

// Apply updates progress after a review of the given quality
func (sm *SM2) Apply(progress *models.WordProgress, quality Quality, now time.Time) {
	progress.LastReviewDate = now
	progress.LastQuality = int(quality)

	q := float64(5 - quality)
	ef := progress.EasinessFactor + (0.1 - q*(0.08+q*0.02))
	if ef < minEasiness {
		ef = minEasiness
	}
	progress.EasinessFactor = ef

	if quality >= sm.PassThreshold {
		progress.ConsecutiveRight++
		progress.Repetitions++
		if progress.Repetitions < len(sm.InitialIntervals) {
			progress.Interval = sm.InitialIntervals[progress.Repetitions]
		} else {
			progress.Interval = int(float64(progress.Interval) * ef)
		}
		if progress.Interval > sm.MaxInterval {
			progress.Interval = sm.MaxInterval
		}
	} else {
		// Lapse: start over tomorrow
		progress.ConsecutiveRight = 0
		progress.Repetitions = 0
		progress.Interval = 1
	}

	progress.NextReviewDate = now.AddDate(0, 0, progress.Interval)
}

// IsMastered reports whether a word no longer needs regular practice
func (sm *SM2) IsMastered(progress *models.WordProgress) bool {
	return progress.Repetitions >= 5 &&
		progress.LastQuality >= int(QualityCorrectHesitation) &&
		progress.Interval >= 30
}

// Prioritize orders due items and returns at most limit of them.
// Hardest words (lowest easiness) come first, then the most overdue.
func Prioritize(due []models.WordProgress, limit int) []models.WordProgress {
	out := append([]models.WordProgress(nil), due...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EasinessFactor != out[j].EasinessFactor {
			return out[i].EasinessFactor < out[j].EasinessFactor
		}
		return out[i].NextReviewDate.Before(out[j].NextReviewDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// QualityFromAccuracy maps a 0..1 accuracy to a quality rating
func QualityFromAccuracy(accuracy float64) Quality {
	if accuracy <= 0 {
		return QualityBlackout
	}
	q := Quality(accuracy * 5)
	if q > QualityPerfect {
		q = QualityPerfect
	}
	return q
}
