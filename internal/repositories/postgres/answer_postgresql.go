package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (a *AnswerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AnswerPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, answers []*models.StudentAnswer) error {
	if len(answers) == 0 {
		return nil
	}

	db := a.getDB(tx)
	if err := db.WithContext(ctx).Create(&answers).Error; err != nil {
		if repositories.IsDuplicateError(err) {
			return fmt.Errorf("answer already recorded: %w", repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create answers: %w", err)
	}
	return nil
}

func (a *AnswerPostgreSQL) ListByExamAndLearner(ctx context.Context, tx *gorm.DB, examID uint, learnerID string) ([]*models.StudentAnswer, error) {
	db := a.getDB(tx)
	var answers []*models.StudentAnswer
	err := db.WithContext(ctx).
		Where("exam_id = ? AND learner_id = ?", examID, learnerID).
		Order("id ASC").
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return answers, nil
}

// AnsweredQuestionIDs returns which of questionIDs already have a stored answer
func (a *AnswerPostgreSQL) AnsweredQuestionIDs(ctx context.Context, tx *gorm.DB, examID uint, learnerID string, questionIDs []uint) ([]uint, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}

	db := a.getDB(tx)
	var ids []uint
	err := db.WithContext(ctx).
		Model(&models.StudentAnswer{}).
		Where("exam_id = ? AND learner_id = ? AND question_id IN ?", examID, learnerID, questionIDs).
		Pluck("question_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check answered questions: %w", err)
	}
	return ids, nil
}
