package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
)

type DocumentPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewDocumentPostgreSQL(db *gorm.DB) repositories.DocumentRepository {
	return &DocumentPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (d *DocumentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return d.db
}

func (d *DocumentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, document *models.Document) error {
	db := d.getDB(tx)
	if err := db.WithContext(ctx).Create(document).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (d *DocumentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Document, error) {
	db := d.getDB(tx)
	var document models.Document
	if err := db.WithContext(ctx).First(&document, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &document, nil
}

// GetStatus reads only the columns needed for polling
func (d *DocumentPostgreSQL) GetStatus(ctx context.Context, tx *gorm.DB, id uint) (*models.DocumentStatusRow, error) {
	db := d.getDB(tx)
	var rows []models.DocumentStatusRow
	err := db.WithContext(ctx).
		Model(&models.Document{}).
		Select("id, owner_id, status, error_message, analyzed_at, updated_at").
		Where("id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get document status: %w", err)
	}
	if len(rows) == 0 {
		return nil, repositories.ErrNotFound
	}
	return &rows[0], nil
}

func (d *DocumentPostgreSQL) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID string, filters repositories.DocumentFilters) ([]*models.Document, int64, error) {
	db := d.getDB(tx)
	var documents []*models.Document
	var total int64

	query := db.WithContext(ctx).Model(&models.Document{}).Where("owner_id = ?", ownerID)
	query = d.helpers.ApplyDocumentFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = d.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	// content text can be large and is not needed in listings
	if err := query.Omit("content_text").Find(&documents).Error; err != nil {
		return nil, 0, err
	}

	return documents, total, nil
}

func (d *DocumentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := d.getDB(tx)
	result := db.WithContext(ctx).Delete(&models.Document{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (d *DocumentPostgreSQL) CompareAndSetStatus(ctx context.Context, tx *gorm.DB, id uint, from []models.DocumentStatus, to models.DocumentStatus, set map[string]any) (bool, error) {
	return compareAndSetStatus(ctx, d.getDB(tx), &models.Document{}, id, from, to, set)
}
