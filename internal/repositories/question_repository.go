package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"gorm.io/gorm"
)

// QuestionRepository interface for generated questions and their options
type QuestionRepository interface {
	// CreateWithOptions inserts the question together with its options
	CreateWithOptions(ctx context.Context, tx *gorm.DB, question *models.Question) error

	// GetByExam returns questions ordered by number, options ordered by order number
	GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Question, error)
	CountByExam(ctx context.Context, tx *gorm.DB, examID uint) (int64, error)

	// DeleteByExam removes a (partial) question set and its options
	DeleteByExam(ctx context.Context, tx *gorm.DB, examID uint) error
}
