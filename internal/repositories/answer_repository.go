package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"gorm.io/gorm"
)

// AnswerRepository interface for insert-only student answers
type AnswerRepository interface {
	// CreateBatch inserts all answers; a stored answer for the same triple yields ErrDuplicate
	CreateBatch(ctx context.Context, tx *gorm.DB, answers []*models.StudentAnswer) error
	ListByExamAndLearner(ctx context.Context, tx *gorm.DB, examID uint, learnerID string) ([]*models.StudentAnswer, error)
	AnsweredQuestionIDs(ctx context.Context, tx *gorm.DB, examID uint, learnerID string, questionIDs []uint) ([]uint, error)
}

// ResultRepository interface for exam results
type ResultRepository interface {
	// Create inserts the result; a second result for (exam, learner) yields ErrDuplicate
	Create(ctx context.Context, tx *gorm.DB, result *models.ExamResult) error
	GetByExamAndLearner(ctx context.Context, tx *gorm.DB, examID uint, learnerID string) (*models.ExamResult, error)

	// ListByLearner returns results oldest first
	ListByLearner(ctx context.Context, tx *gorm.DB, learnerID string) ([]*models.ExamResult, error)
}

// ProgressRepository interface for learner aggregates
type ProgressRepository interface {
	GetByLearner(ctx context.Context, tx *gorm.DB, learnerID string) (*models.LearnerProgress, error)
	// GetStored reads the row directly, bypassing the cache
	GetStored(ctx context.Context, tx *gorm.DB, learnerID string) (*models.LearnerProgress, error)
	Upsert(ctx context.Context, tx *gorm.DB, progress *models.LearnerProgress) error
}
