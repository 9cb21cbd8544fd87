package models

import (
	"time"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// OptionsPerQuestion is the fixed number of options on every generated question
const OptionsPerQuestion = 4

// OptionLetters lists option letters in display order
var OptionLetters = []string{"A", "B", "C", "D"}

func IsValidDifficulty(d DifficultyLevel) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

func IsValidOptionLetter(letter string) bool {
	for _, l := range OptionLetters {
		if l == letter {
			return true
		}
	}
	return false
}

type Question struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	ExamID         uint            `json:"exam_id" gorm:"not null;uniqueIndex:idx_exam_question_number"`
	QuestionNumber int             `json:"question_number" gorm:"not null;uniqueIndex:idx_exam_question_number"`
	Text           string          `json:"text" gorm:"type:text;not null"`
	Points         int             `json:"points" gorm:"not null"`
	Difficulty     DifficultyLevel `json:"difficulty" gorm:"default:medium;size:16"`
	Explanation    *string         `json:"explanation,omitempty" gorm:"type:text"`
	CreatedAt      time.Time       `json:"created_at"`

	// Relations
	Options []QuestionOption `json:"options" gorm:"foreignKey:QuestionID"`
}

func (Question) TableName() string {
	return "questions"
}

// CorrectOption returns the option flagged correct, or nil if none is
func (q *Question) CorrectOption() *QuestionOption {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

// OptionByLetter finds an option of this question
func (q *Question) OptionByLetter(letter string) *QuestionOption {
	for i := range q.Options {
		if q.Options[i].Letter == letter {
			return &q.Options[i]
		}
	}
	return nil
}

type QuestionOption struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	QuestionID  uint   `json:"question_id" gorm:"not null;index:idx_option_letter,unique;index:idx_option_order,unique"`
	Letter      string `json:"letter" gorm:"not null;size:1;index:idx_option_letter,unique"`
	Text        string `json:"text" gorm:"type:text;not null"`
	IsCorrect   bool   `json:"is_correct" gorm:"not null;default:false"`
	OrderNumber int    `json:"order_number" gorm:"not null;index:idx_option_order,unique"`
}

func (QuestionOption) TableName() string {
	return "question_options"
}
