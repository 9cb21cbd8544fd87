package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"gorm.io/gorm"
)

// ExamRepository interface for generated exams
type ExamRepository interface {
	Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	GetStatus(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamStatusRow, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID string, filters ExamFilters) ([]*models.Exam, int64, error)
	CountByDocument(ctx context.Context, tx *gorm.DB, documentID uint) (int64, error)

	// CompareAndSetStatus moves the exam to `to` only if its current status is in `from`
	// and every guard holds. It reports false when the precondition did not hold.
	CompareAndSetStatus(ctx context.Context, tx *gorm.DB, id uint, from []models.ExamStatus, to models.ExamStatus, set map[string]any, guards ...Guard) (bool, error)
}
