package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/events"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/validator"
	"gorm.io/gorm"
)

type gradingService struct {
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	progress  ProgressService
	deps      Dependencies
}

func NewGradingService(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, progress ProgressService, deps Dependencies) GradingService {
	deps = deps.withDefaults(logger)
	if progress == nil {
		progress = NewProgressService(repo, logger, deps)
	}
	return &gradingService{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		progress:  progress,
		deps:      deps,
	}
}

// Submit stores the answer batch, completes the exam and writes the result
// in one transaction. Any rejection leaves nothing behind.
func (s *gradingService) Submit(ctx context.Context, examID uint, learnerID string, req *SubmitAnswersRequest) (*models.ExamResult, error) {
	if req == nil {
		req = &SubmitAnswersRequest{}
	}
	if errs := s.validator.ValidateSubmit(req); len(errs) > 0 {
		return nil, errs
	}

	s.logger.Info("Submitting exam", "exam_id", examID, "learner_id", learnerID, "answers", len(req.Answers))

	var (
		result *models.ExamResult
		exam   *models.Exam
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		exam, err = s.repo.Exam().GetByID(ctx, tx, examID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrExamNotFound
			}
			return fmt.Errorf("failed to get exam: %w", err)
		}
		if exam.OwnerID != learnerID {
			return NewPermissionError(learnerID, examID, "exam", "submit", "not owner")
		}

		now := s.deps.Clock.Now()
		if exam.Status != models.ExamInProgress || exam.IsExpired(now) {
			return completeConflict(exam, now)
		}

		questions, err := s.repo.Question().GetByExam(ctx, tx, examID)
		if err != nil {
			return fmt.Errorf("failed to get questions: %w", err)
		}

		if errs := validateAnswerBatch(questions, req.Answers); len(errs) > 0 {
			return errs
		}

		if len(req.Answers) > 0 {
			ids := make([]uint, 0, len(req.Answers))
			for _, a := range req.Answers {
				ids = append(ids, a.QuestionID)
			}
			answered, err := s.repo.Answer().AnsweredQuestionIDs(ctx, tx, examID, learnerID, ids)
			if err != nil {
				return fmt.Errorf("failed to check stored answers: %w", err)
			}
			if len(answered) > 0 {
				return NewStateConflictError("exam", examID, string(exam.Status), ReasonAnswerExists)
			}
		}

		answers := gradeAnswers(examID, learnerID, questions, req.Answers, now)
		if err := s.repo.Answer().CreateBatch(ctx, tx, answers); err != nil {
			if repositories.IsDuplicateError(err) {
				return NewStateConflictError("exam", examID, string(exam.Status), ReasonAnswerExists)
			}
			return fmt.Errorf("failed to store answers: %w", err)
		}

		ok, err := s.repo.Exam().CompareAndSetStatus(ctx, tx, examID,
			[]models.ExamStatus{models.ExamInProgress}, models.ExamCompleted,
			map[string]any{"completed_at": now},
			repositories.NotExpiredGuard(now))
		if err != nil {
			return fmt.Errorf("failed to complete exam: %w", err)
		}
		if !ok {
			current, err := s.repo.Exam().GetByID(ctx, tx, examID)
			if err != nil {
				return fmt.Errorf("failed to get exam: %w", err)
			}
			return completeConflict(current, now)
		}

		stored, err := s.repo.Answer().ListByExamAndLearner(ctx, tx, examID, learnerID)
		if err != nil {
			return fmt.Errorf("failed to load answers: %w", err)
		}

		result, err = computeResult(exam, learnerID, questions, stored, now)
		if err != nil {
			return err
		}
		if err := checkResultInvariant(result); err != nil {
			return err
		}

		if err := s.repo.Result().Create(ctx, tx, result); err != nil {
			if repositories.IsDuplicateError(err) {
				return NewStateConflictError("exam", examID, string(models.ExamCompleted), ReasonResultExists)
			}
			return fmt.Errorf("failed to store result: %w", err)
		}
		return nil
	})
	if err != nil {
		var consistency *ConsistencyError
		if errors.As(err, &consistency) {
			s.logger.Error("Grading invariant violated, submission rolled back", "exam_id", examID, "learner_id", learnerID, "error", err)
		}
		return nil, err
	}

	s.logger.Info("Exam graded",
		"exam_id", examID,
		"learner_id", learnerID,
		"percentage", result.PercentageScore,
		"grade", result.Grade,
		"passed", result.Passed)

	if _, err := s.progress.Recompute(ctx, learnerID); err != nil {
		s.logger.Error("Failed to update learner progress", "learner_id", learnerID, "error", err)
	}

	event := events.NewEvent(events.ExamCompleted, result.CompletedAt, events.ExamCompletedData{
		ExamID:          examID,
		LearnerID:       learnerID,
		PercentageScore: result.PercentageScore,
		Grade:           string(result.Grade),
		Passed:          result.Passed,
	})
	if err := s.deps.Events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", event.Type, "error", err)
	}

	return result, nil
}

func (s *gradingService) GetResult(ctx context.Context, examID uint, learnerID string) (*models.ExamResult, error) {
	result, err := s.repo.Result().GetByExamAndLearner(ctx, nil, examID, learnerID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return result, nil
}
