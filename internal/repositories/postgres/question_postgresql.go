package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/cache"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

// CreateWithOptions inserts the question and its options in one statement batch
func (q *QuestionPostgreSQL) CreateWithOptions(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

// GetByExam returns the ordered question set. Reads outside a transaction
// are served from cache; question sets do not change once the exam is ready.
func (q *QuestionPostgreSQL) GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Question, error) {
	if tx != nil {
		return q.loadByExam(ctx, tx, examID)
	}

	var questions []*models.Question
	err := q.cacheManager.Question.CacheOrExecute(ctx, cache.ExamQuestionsKey(examID), &questions, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		return q.loadByExam(ctx, q.db, examID)
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) loadByExam(ctx context.Context, db *gorm.DB, examID uint) ([]*models.Question, error) {
	var questions []*models.Question
	err := db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_number ASC")
		}).
		Order("question_number ASC").
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get questions for exam: %w", err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) CountByExam(ctx context.Context, tx *gorm.DB, examID uint) (int64, error) {
	db := q.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("exam_id = ?", examID).
		Count(&count).Error
	return count, err
}

// DeleteByExam removes options first, then questions
func (q *QuestionPostgreSQL) DeleteByExam(ctx context.Context, tx *gorm.DB, examID uint) error {
	db := q.getDB(tx)

	questionIDs := db.Model(&models.Question{}).Select("id").Where("exam_id = ?", examID)
	if err := db.WithContext(ctx).Where("question_id IN (?)", questionIDs).Delete(&models.QuestionOption{}).Error; err != nil {
		return fmt.Errorf("failed to delete question options: %w", err)
	}
	if err := db.WithContext(ctx).Where("exam_id = ?", examID).Delete(&models.Question{}).Error; err != nil {
		return fmt.Errorf("failed to delete questions: %w", err)
	}

	cache.InvalidateExamQuestions(ctx, q.cacheManager, examID)
	return nil
}
