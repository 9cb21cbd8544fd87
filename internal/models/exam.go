package models

import (
	"time"
)

type ExamStatus string

const (
	ExamPending    ExamStatus = "pending"
	ExamProcessing ExamStatus = "processing"
	ExamReady      ExamStatus = "ready"
	ExamInProgress ExamStatus = "in_progress"
	ExamCompleted  ExamStatus = "completed"
	ExamError      ExamStatus = "error"

	// ExamExpired is never persisted; it is derived from ExpiresAt on read.
	ExamExpired ExamStatus = "expired"
)

type Exam struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	DocumentID     uint   `json:"document_id" gorm:"not null;index"`
	OwnerID        string `json:"owner_id" gorm:"not null;index;size:255"`
	Title          string `json:"title" gorm:"not null;size:200"`
	TotalQuestions int    `json:"total_questions" gorm:"not null"`
	PassingScore   int    `json:"passing_score" gorm:"not null"`

	// Timing. ExpiresAt is fixed at creation and never recomputed.
	TimeLimitMinutes *int       `json:"time_limit_minutes"`
	ExpiresAt        *time.Time `json:"expires_at" gorm:"index"`

	Status       ExamStatus `json:"status" gorm:"not null;default:pending;index;size:16"`
	ErrorMessage *string    `json:"error_message" gorm:"type:text"`

	ReadyAt     *time.Time `json:"ready_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:ExamID"`
}

func (Exam) TableName() string {
	return "exams"
}

// ExpiryFor derives the immutable expiry from the creation time. A nil or
// non-positive limit means the exam never expires.
func ExpiryFor(createdAt time.Time, timeLimitMinutes *int) *time.Time {
	if timeLimitMinutes == nil || *timeLimitMinutes <= 0 {
		return nil
	}
	t := createdAt.Add(time.Duration(*timeLimitMinutes) * time.Minute)
	return &t
}

// IsExpired reports now > expiresAt
func (e *Exam) IsExpired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// EffectiveStatus is the status a caller should see at the given instant.
// Terminal states win over expiry.
func (e *Exam) EffectiveStatus(now time.Time) ExamStatus {
	switch e.Status {
	case ExamCompleted, ExamError:
		return e.Status
	}
	if e.IsExpired(now) {
		return ExamExpired
	}
	return e.Status
}

// RemainingSeconds returns the time left before expiry, or nil when the exam never expires.
func (e *Exam) RemainingSeconds(now time.Time) *int64 {
	if e.ExpiresAt == nil {
		return nil
	}
	left := int64(e.ExpiresAt.Sub(now).Seconds())
	if left < 0 {
		left = 0
	}
	return &left
}
