package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/cache"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
)

type ResultPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewResultPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ResultRepository {
	return &ResultPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *ResultPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ResultPostgreSQL) Create(ctx context.Context, tx *gorm.DB, result *models.ExamResult) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(result).Error; err != nil {
		if repositories.IsDuplicateError(err) {
			return fmt.Errorf("result already recorded: %w", repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create exam result: %w", err)
	}
	return nil
}

// GetByExamAndLearner is cached outside transactions; results are immutable once written
func (r *ResultPostgreSQL) GetByExamAndLearner(ctx context.Context, tx *gorm.DB, examID uint, learnerID string) (*models.ExamResult, error) {
	if tx != nil {
		return r.load(ctx, tx, examID, learnerID)
	}

	var result models.ExamResult
	err := r.cacheManager.Result.CacheOrExecute(ctx, cache.LearnerResultKey(examID, learnerID), &result, cache.ResultCacheConfig.TTL, func() (interface{}, error) {
		return r.load(ctx, r.db, examID, learnerID)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultPostgreSQL) load(ctx context.Context, db *gorm.DB, examID uint, learnerID string) (*models.ExamResult, error) {
	var result models.ExamResult
	err := db.WithContext(ctx).
		Where("exam_id = ? AND learner_id = ?", examID, learnerID).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get exam result: %w", err)
	}
	return &result, nil
}

func (r *ResultPostgreSQL) ListByLearner(ctx context.Context, tx *gorm.DB, learnerID string) ([]*models.ExamResult, error) {
	db := r.getDB(tx)
	var results []*models.ExamResult
	err := db.WithContext(ctx).
		Where("learner_id = ?", learnerID).
		Order("completed_at ASC").
		Order("id ASC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list exam results: %w", err)
	}
	return results, nil
}
