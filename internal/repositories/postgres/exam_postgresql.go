package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewExamPostgreSQL(db *gorm.DB) repositories.ExamRepository {
	return &ExamPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (e *ExamPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return e.db
}

func (e *ExamPostgreSQL) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	db := e.getDB(tx)
	if err := db.WithContext(ctx).Omit("Questions").Create(exam).Error; err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}
	return nil
}

func (e *ExamPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	db := e.getDB(tx)
	var exam models.Exam
	if err := db.WithContext(ctx).First(&exam, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return &exam, nil
}

// GetStatus reads only the columns needed for polling
func (e *ExamPostgreSQL) GetStatus(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamStatusRow, error) {
	db := e.getDB(tx)
	var rows []models.ExamStatusRow
	err := db.WithContext(ctx).
		Model(&models.Exam{}).
		Select("id, owner_id, status, total_questions, error_message, expires_at, updated_at").
		Where("id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get exam status: %w", err)
	}
	if len(rows) == 0 {
		return nil, repositories.ErrNotFound
	}
	return &rows[0], nil
}

func (e *ExamPostgreSQL) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID string, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	db := e.getDB(tx)
	var exams []*models.Exam
	var total int64

	query := db.WithContext(ctx).Model(&models.Exam{}).Where("owner_id = ?", ownerID)
	query = e.helpers.ApplyExamFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = e.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&exams).Error; err != nil {
		return nil, 0, err
	}

	return exams, total, nil
}

func (e *ExamPostgreSQL) CountByDocument(ctx context.Context, tx *gorm.DB, documentID uint) (int64, error) {
	db := e.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Exam{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	return count, err
}

func (e *ExamPostgreSQL) CompareAndSetStatus(ctx context.Context, tx *gorm.DB, id uint, from []models.ExamStatus, to models.ExamStatus, set map[string]any, guards ...repositories.Guard) (bool, error) {
	return compareAndSetStatus(ctx, e.getDB(tx), &models.Exam{}, id, from, to, set, guards...)
}
