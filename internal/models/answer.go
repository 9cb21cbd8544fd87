package models

import (
	"time"

	"gorm.io/datatypes"
)

// StudentAnswer is insert-only: one row per (exam, question, learner).
type StudentAnswer struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ExamID         uint      `json:"exam_id" gorm:"not null;uniqueIndex:idx_answer_exam_question_learner"`
	QuestionID     uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_exam_question_learner"`
	LearnerID      string    `json:"learner_id" gorm:"not null;size:255;uniqueIndex:idx_answer_exam_question_learner"`
	SelectedOption string    `json:"selected_option" gorm:"not null;size:1"`
	IsCorrect      bool      `json:"is_correct"`
	PointsEarned   int       `json:"points_earned"`
	AnsweredAt     time.Time `json:"answered_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func (StudentAnswer) TableName() string {
	return "student_answers"
}

type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// GradeFor maps a percentage score to a letter grade
func GradeFor(percentage int) Grade {
	switch {
	case percentage >= 90:
		return GradeA
	case percentage >= 80:
		return GradeB
	case percentage >= 70:
		return GradeC
	case percentage >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// ExamResult is written once per (exam, learner) and never updated.
type ExamResult struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	ExamID    uint   `json:"exam_id" gorm:"not null;uniqueIndex:idx_result_exam_learner"`
	LearnerID string `json:"learner_id" gorm:"not null;size:255;uniqueIndex:idx_result_exam_learner;index"`

	TotalQuestions   int `json:"total_questions"`
	CorrectAnswers   int `json:"correct_answers"`
	IncorrectAnswers int `json:"incorrect_answers"`
	Unanswered       int `json:"unanswered"`
	TotalPoints      int `json:"total_points"`
	PointsEarned     int `json:"points_earned"`

	PercentageScore int   `json:"percentage_score"`
	Grade           Grade `json:"grade" gorm:"size:1"`
	Passed          bool  `json:"passed"`

	// Per-question outcome list ([]QuestionOutcome)
	Breakdown datatypes.JSON `json:"breakdown"`

	CompletedAt time.Time `json:"completed_at" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
}

func (ExamResult) TableName() string {
	return "exam_results"
}

// QuestionOutcome is one entry of ExamResult.Breakdown
type QuestionOutcome struct {
	QuestionID     uint    `json:"question_id"`
	QuestionNumber int     `json:"question_number"`
	SelectedOption *string `json:"selected_option"`
	CorrectOption  string  `json:"correct_option"`
	IsCorrect      bool    `json:"is_correct"`
	PointsEarned   int     `json:"points_earned"`
	Points         int     `json:"points"`
}
