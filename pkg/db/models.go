package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/kantoku-app/kantoku/pkg/task"
)

// Profile is the per-user settings row the dashboard reads.
type Profile struct {
	ID               uuid.UUID
	DisplayName      string
	DailyGoalMinutes int
	StreakDays       int
	SkipRemaining    int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// KanaProgress tracks drill results for one character of one script.
type KanaProgress struct {
	UserID         uuid.UUID
	Kana           string
	KanaType       task.KanaType
	CorrectCount   int
	IncorrectCount int
	MasteryScore   int
	LastReviewed   time.Time
}

// Accuracy is the correct fraction over all recorded attempts.
func (p *KanaProgress) Accuracy() float64 {
	total := p.CorrectCount + p.IncorrectCount
	if total == 0 {
		return 0
	}
	return float64(p.CorrectCount) / float64(total)
}
