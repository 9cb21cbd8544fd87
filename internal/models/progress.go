package models

import (
	"time"
)

const (
	AttentionScoreThreshold = 70.0
	AttentionInactivity     = 7 * 24 * time.Hour
)

// LearnerProgress aggregates a learner's results across exams.
type LearnerProgress struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	LearnerID string `json:"learner_id" gorm:"not null;size:255;uniqueIndex"`

	TotalExamsTaken  int     `json:"total_exams_taken"`
	TotalExamsPassed int     `json:"total_exams_passed"`
	AverageScore     float64 `json:"average_score"`
	HighestScore     int     `json:"highest_score"`
	LowestScore      int     `json:"lowest_score"`
	CurrentStreak    int     `json:"current_streak"`
	LongestStreak    int     `json:"longest_streak"`

	LastActivityAt *time.Time `json:"last_activity_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (LearnerProgress) TableName() string {
	return "learner_progress"
}

// NeedsAttention is derived, never stored.
func (p *LearnerProgress) NeedsAttention(now time.Time) bool {
	if p == nil || p.TotalExamsTaken == 0 {
		return true
	}
	if p.AverageScore < AttentionScoreThreshold {
		return true
	}
	if p.LastActivityAt == nil {
		return true
	}
	return now.Sub(*p.LastActivityAt) > AttentionInactivity
}

// PassRate returns passed/taken as a percentage
func (p *LearnerProgress) PassRate() float64 {
	if p.TotalExamsTaken == 0 {
		return 0
	}
	return float64(p.TotalExamsPassed) / float64(p.TotalExamsTaken) * 100
}

// AllModels lists every persisted model for migrations
func AllModels() []any {
	return []any{
		&Document{},
		&Exam{},
		&Question{},
		&QuestionOption{},
		&StudentAnswer{},
		&ExamResult{},
		&LearnerProgress{},
	}
}
