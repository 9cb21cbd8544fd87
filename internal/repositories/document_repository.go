package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"gorm.io/gorm"
)

// DocumentRepository interface for uploaded documents
type DocumentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, document *models.Document) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Document, error)
	GetStatus(ctx context.Context, tx *gorm.DB, id uint) (*models.DocumentStatusRow, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID string, filters DocumentFilters) ([]*models.Document, int64, error)
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// CompareAndSetStatus moves the document to `to` only if its current status is in `from`.
	// It reports false when the precondition did not hold.
	CompareAndSetStatus(ctx context.Context, tx *gorm.DB, id uint, from []models.DocumentStatus, to models.DocumentStatus, set map[string]any) (bool, error)
}
