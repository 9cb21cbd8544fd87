package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// ExamQuestionsKey is the cache key of an exam's question set
func ExamQuestionsKey(examID uint) string {
	return fmt.Sprintf("exam:%d", examID)
}

// LearnerResultKey is the cache key of one learner's result for an exam
func LearnerResultKey(examID uint, learnerID string) string {
	return fmt.Sprintf("exam:%d:learner:%s", examID, learnerID)
}

// LearnerProgressKey is the cache key of a learner's progress aggregate
func LearnerProgressKey(learnerID string) string {
	return fmt.Sprintf("learner:%s", learnerID)
}

// InvalidateExamQuestions drops a cached question set, e.g. after an exam reset
func InvalidateExamQuestions(ctx context.Context, cm *CacheManager, examID uint) {
	SafeDelete(ctx, cm.Question, ExamQuestionsKey(examID))
}

// InvalidateLearnerProgress drops the cached aggregate after a recomputation
func InvalidateLearnerProgress(ctx context.Context, cm *CacheManager, learnerID string) {
	SafeDelete(ctx, cm.Progress, LearnerProgressKey(learnerID))
}
