package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
)

type sessionService struct {
	repo   repositories.Repository
	logger *slog.Logger
	deps   Dependencies
}

func NewSessionService(repo repositories.Repository, logger *slog.Logger, deps Dependencies) SessionService {
	return &sessionService{
		repo:   repo,
		logger: logger,
		deps:   deps.withDefaults(logger),
	}
}

// Start moves the exam to in_progress. Expiry is part of the guarded update,
// so a start racing the deadline cannot slip through.
func (s *sessionService) Start(ctx context.Context, examID uint, learnerID string) (*ExamView, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	if exam.OwnerID != learnerID {
		return nil, NewPermissionError(learnerID, examID, "exam", "start", "not owner")
	}

	now := s.deps.Clock.Now()
	ok, err := s.repo.Exam().CompareAndSetStatus(ctx, nil, examID,
		[]models.ExamStatus{models.ExamPending, models.ExamReady}, models.ExamInProgress,
		map[string]any{"started_at": now},
		repositories.NotExpiredGuard(now))
	if err != nil {
		return nil, fmt.Errorf("failed to start exam: %w", err)
	}
	if !ok {
		current, err := s.repo.Exam().GetByID(ctx, nil, examID)
		if err != nil {
			return nil, fmt.Errorf("failed to get exam: %w", err)
		}
		conflict := startConflict(current, now)
		s.logger.Info("Exam start rejected", "exam_id", examID, "learner_id", learnerID, "reason", conflict.Reason)
		return nil, conflict
	}

	exam.Status = models.ExamInProgress
	exam.StartedAt = &now

	questions, err := s.repo.Question().GetByExam(ctx, nil, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	s.logger.Info("Exam started", "exam_id", examID, "learner_id", learnerID, "expires_at", exam.ExpiresAt)
	return buildExamView(exam, questions, now), nil
}

// startConflict explains why start was refused, from a fresh read
func startConflict(exam *models.Exam, now time.Time) *StateConflictError {
	reason := ReasonNotReady
	switch {
	case exam.Status == models.ExamCompleted:
		reason = ReasonAlreadyCompleted
	case exam.IsExpired(now) && exam.Status != models.ExamError:
		reason = ReasonExpired
	case exam.Status == models.ExamInProgress:
		reason = ReasonAlreadyStarted
	}
	return NewStateConflictError("exam", exam.ID, string(exam.Status), reason)
}

// completeConflict explains why an exam cannot be completed
func completeConflict(exam *models.Exam, now time.Time) *StateConflictError {
	reason := ReasonNotReady
	switch {
	case exam.Status == models.ExamCompleted:
		reason = ReasonAlreadyCompleted
	case exam.IsExpired(now) && exam.Status != models.ExamError:
		reason = ReasonExpired
	case exam.Status == models.ExamPending, exam.Status == models.ExamReady:
		reason = ReasonNotStarted
	}
	return NewStateConflictError("exam", exam.ID, string(exam.Status), reason)
}
