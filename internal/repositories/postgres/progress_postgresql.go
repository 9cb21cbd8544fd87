package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/cache"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
)

type ProgressPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewProgressPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ProgressRepository {
	return &ProgressPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (p *ProgressPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}

func (p *ProgressPostgreSQL) GetByLearner(ctx context.Context, tx *gorm.DB, learnerID string) (*models.LearnerProgress, error) {
	if tx != nil {
		return p.load(ctx, tx, learnerID)
	}

	var progress models.LearnerProgress
	err := p.cacheManager.Progress.CacheOrExecute(ctx, cache.LearnerProgressKey(learnerID), &progress, cache.ProgressCacheConfig.TTL, func() (interface{}, error) {
		return p.load(ctx, p.db, learnerID)
	})
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (p *ProgressPostgreSQL) GetStored(ctx context.Context, tx *gorm.DB, learnerID string) (*models.LearnerProgress, error) {
	return p.load(ctx, p.getDB(tx), learnerID)
}

func (p *ProgressPostgreSQL) load(ctx context.Context, db *gorm.DB, learnerID string) (*models.LearnerProgress, error) {
	var progress models.LearnerProgress
	if err := db.WithContext(ctx).Where("learner_id = ?", learnerID).First(&progress).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get learner progress: %w", err)
	}
	return &progress, nil
}

// Upsert writes the aggregate keyed by learner and drops the cached copy
func (p *ProgressPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, progress *models.LearnerProgress) error {
	db := p.getDB(tx)
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "learner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_exams_taken",
			"total_exams_passed",
			"average_score",
			"highest_score",
			"lowest_score",
			"current_streak",
			"longest_streak",
			"last_activity_at",
			"updated_at",
		}),
	}).Create(progress).Error
	if err != nil {
		return fmt.Errorf("failed to upsert learner progress: %w", err)
	}

	cache.InvalidateLearnerProgress(ctx, p.cacheManager, progress.LearnerID)
	return nil
}
