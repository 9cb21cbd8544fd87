package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
)

type progressService struct {
	repo   repositories.Repository
	logger *slog.Logger
	deps   Dependencies
	locks  *keyedMutex
}

func NewProgressService(repo repositories.Repository, logger *slog.Logger, deps Dependencies) ProgressService {
	return &progressService{
		repo:   repo,
		logger: logger,
		deps:   deps.withDefaults(logger),
		locks:  newKeyedMutex(),
	}
}

// Recompute rebuilds the learner's aggregate from every stored result.
// Recomputations for one learner are serialised.
func (s *progressService) Recompute(ctx context.Context, learnerID string) (*models.LearnerProgress, error) {
	unlock := s.locks.Lock(learnerID)
	defer unlock()

	results, err := s.repo.Result().ListByLearner(ctx, nil, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	stored, err := s.repo.Progress().GetStored(ctx, nil, learnerID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	progress := aggregateProgress(learnerID, results, stored, s.deps.Clock.Now())
	if err := s.repo.Progress().Upsert(ctx, nil, progress); err != nil {
		return nil, fmt.Errorf("failed to store progress: %w", err)
	}

	s.logger.Info("Learner progress updated",
		"learner_id", learnerID,
		"exams_taken", progress.TotalExamsTaken,
		"average_score", progress.AverageScore,
		"current_streak", progress.CurrentStreak)

	return progress, nil
}

func (s *progressService) Get(ctx context.Context, learnerID string) (*ProgressResponse, error) {
	progress, err := s.repo.Progress().GetByLearner(ctx, nil, learnerID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to get progress: %w", err)
		}
		progress = &models.LearnerProgress{LearnerID: learnerID}
	}

	return &ProgressResponse{
		LearnerProgress: progress,
		PassRate:        math.Round(progress.PassRate()*100) / 100,
		NeedsAttention:  progress.NeedsAttention(s.deps.Clock.Now()),
	}, nil
}

// aggregateProgress computes the aggregate from results ordered oldest first.
// The longest streak never decreases below what was stored before.
func aggregateProgress(learnerID string, results []*models.ExamResult, stored *models.LearnerProgress, now time.Time) *models.LearnerProgress {
	p := &models.LearnerProgress{
		LearnerID:      learnerID,
		LastActivityAt: &now,
	}

	var (
		sum     int
		run     int
		longest int
	)
	for i, r := range results {
		p.TotalExamsTaken++
		sum += r.PercentageScore

		if i == 0 || r.PercentageScore > p.HighestScore {
			p.HighestScore = r.PercentageScore
		}
		if i == 0 || r.PercentageScore < p.LowestScore {
			p.LowestScore = r.PercentageScore
		}

		if r.Passed {
			p.TotalExamsPassed++
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}

	if p.TotalExamsTaken > 0 {
		p.AverageScore = math.Round(float64(sum)/float64(p.TotalExamsTaken)*100) / 100
	}
	p.CurrentStreak = run
	p.LongestStreak = longest
	if stored != nil && stored.LongestStreak > p.LongestStreak {
		p.LongestStreak = stored.LongestStreak
	}
	return p
}

// keyedMutex hands out one mutex per key and drops it when unused
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
