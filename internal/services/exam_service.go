package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/content"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/events"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/validator"
)

const DefaultPassingScore = 60

type examService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	deps      Dependencies
}

func NewExamService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, deps Dependencies) ExamService {
	return &examService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		deps:      deps.withDefaults(logger),
	}
}

// ===== EXAM DEFINITION =====

func (s *examService) Create(ctx context.Context, ownerID string, req *CreateExamRequest) (*models.Exam, error) {
	if errs := s.validator.ValidateExamCreate(req); len(errs) > 0 {
		return nil, errs
	}

	doc, err := s.repo.Document().GetByID(ctx, nil, req.DocumentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if doc.OwnerID != ownerID {
		return nil, NewPermissionError(ownerID, doc.ID, "document", "create_exam", "not owner")
	}
	if doc.Status != models.DocumentAnalyzed || !doc.HasContent() {
		return nil, ErrDocumentNotAnalyzed
	}

	now := s.deps.Clock.Now()
	exam := &models.Exam{
		DocumentID:       doc.ID,
		OwnerID:          ownerID,
		Title:            examTitle(req.Title, doc.FileName),
		TotalQuestions:   req.QuestionCount,
		PassingScore:     DefaultPassingScore,
		TimeLimitMinutes: req.TimeLimitMinutes,
		ExpiresAt:        models.ExpiryFor(now, req.TimeLimitMinutes),
		Status:           models.ExamPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.PassingScore != nil {
		exam.PassingScore = *req.PassingScore
	}

	if err := s.repo.Exam().Create(ctx, nil, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.logger.Info("Exam created",
		"exam_id", exam.ID,
		"document_id", doc.ID,
		"question_count", exam.TotalQuestions,
		"expires_at", exam.ExpiresAt)

	s.triggerGeneration(ctx, exam.ID)
	return exam, nil
}

func (s *examService) GetForLearner(ctx context.Context, id uint, userID string) (*ExamView, error) {
	exam, err := s.getOwnedExam(ctx, id, userID, "read")
	if err != nil {
		return nil, err
	}

	var questions []*models.Question
	if showsQuestions(exam.Status) {
		questions, err = s.repo.Question().GetByExam(ctx, nil, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get questions: %w", err)
		}
	}
	return buildExamView(exam, questions, s.deps.Clock.Now()), nil
}

// GetStatus is a pure read; expiry is derived, never written
func (s *examService) GetStatus(ctx context.Context, id uint, userID string) (*ExamStatusResponse, error) {
	row, err := s.repo.Exam().GetStatus(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam status: %w", err)
	}
	if row.OwnerID != userID {
		return nil, NewPermissionError(userID, id, "exam", "read", "not owner")
	}
	return buildExamStatus(row.Exam(), s.deps.Clock.Now()), nil
}

func (s *examService) List(ctx context.Context, ownerID string, filters repositories.ExamFilters) (*ExamListResponse, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}

	exams, total, err := s.repo.Exam().ListByOwner(ctx, nil, ownerID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	now := s.deps.Clock.Now()
	summaries := make([]*ExamSummary, 0, len(exams))
	for _, e := range exams {
		summaries = append(summaries, &ExamSummary{Exam: e, EffectiveStatus: e.EffectiveStatus(now)})
	}

	return &ExamListResponse{
		Exams:  summaries,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}

func (s *examService) getOwnedExam(ctx context.Context, id uint, userID, action string) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	if exam.OwnerID != userID {
		return nil, NewPermissionError(userID, id, "exam", action, "not owner")
	}
	return exam, nil
}

// ===== GENERATION STAGE =====

func (s *examService) triggerGeneration(ctx context.Context, id uint) {
	s.deps.Tasks.Go(ctx, fmt.Sprintf("generate-exam-%d", id),
		func(ctx context.Context) {
			if err := s.Generate(ctx, id); err != nil {
				s.logger.Error("Generation stage error", "exam_id", id, "error", err)
			}
		},
		func(ctx context.Context, recovered any) {
			s.failGeneration(ctx, id, fmt.Errorf("internal error: %v", recovered))
		},
	)
}

func (s *examService) Generate(ctx context.Context, id uint) error {
	claimed, err := s.repo.Exam().CompareAndSetStatus(ctx, nil, id,
		[]models.ExamStatus{models.ExamPending}, models.ExamProcessing, nil)
	if err != nil {
		return fmt.Errorf("failed to claim exam: %w", err)
	}
	if !claimed {
		s.logger.Info("Generation skipped, exam not pending", "exam_id", id)
		return nil
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, id)
	if err != nil {
		s.failGeneration(ctx, id, fmt.Errorf("failed to load exam: %w", err))
		return nil
	}

	s.logger.Info("Starting question generation", "exam_id", id, "count", exam.TotalQuestions)

	if err := s.generateQuestions(ctx, exam); err != nil {
		s.failGeneration(ctx, id, err)
		return nil
	}

	ok, err := s.repo.Exam().CompareAndSetStatus(ctx, nil, id,
		[]models.ExamStatus{models.ExamProcessing}, models.ExamReady,
		map[string]any{
			"ready_at":      s.deps.Clock.Now(),
			"error_message": nil,
		})
	if err != nil {
		s.failGeneration(ctx, id, fmt.Errorf("failed to mark exam ready: %w", err))
		return nil
	}
	if !ok {
		s.logger.Warn("Exam left processing state during generation", "exam_id", id)
		return nil
	}

	s.logger.Info("Exam ready", "exam_id", id)
	s.publish(ctx, events.ExamReady, events.ExamEventData{
		ExamID:         id,
		DocumentID:     exam.DocumentID,
		OwnerID:        exam.OwnerID,
		TotalQuestions: exam.TotalQuestions,
	})
	return nil
}

func (s *examService) generateQuestions(ctx context.Context, exam *models.Exam) error {
	doc, err := s.repo.Document().GetByID(ctx, nil, exam.DocumentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("failed to load document: %w", err)
	}
	if doc.Status != models.DocumentAnalyzed || !doc.HasContent() {
		return ErrDocumentNotAnalyzed
	}

	count := exam.TotalQuestions
	descriptors, err := s.deps.Content.GenerateQuestions(ctx, *doc.ContentText, count)
	if err != nil {
		if doc.Kind != models.DocumentImage || !content.IsMalformed(err) {
			return err
		}
		s.logger.Warn("Using placeholder questions for image document", "exam_id", exam.ID, "error", err)
		descriptors = content.PlaceholderQuestions(count)
	}
	if len(descriptors) != count {
		return fmt.Errorf("%w: got %d of %d", content.ErrNotEnoughQuestions, len(descriptors), count)
	}

	points := pointsPerQuestion(count)
	for i, d := range descriptors {
		q := buildQuestion(exam.ID, i+1, points, d)
		if err := s.repo.Question().CreateWithOptions(ctx, nil, q); err != nil {
			return fmt.Errorf("failed to store question %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *examService) failGeneration(ctx context.Context, id uint, cause error) {
	msg := generationFailureMessage(cause)
	s.logger.Error("Question generation failed", "exam_id", id, "error", cause)

	ok, err := s.repo.Exam().CompareAndSetStatus(ctx, nil, id,
		[]models.ExamStatus{models.ExamProcessing}, models.ExamError,
		map[string]any{"error_message": msg})
	if err != nil {
		s.logger.Error("Failed to record generation failure", "exam_id", id, "error", err)
		return
	}
	if !ok {
		return
	}

	data := events.ExamEventData{ExamID: id, ErrorMessage: msg}
	if exam, err := s.repo.Exam().GetByID(ctx, nil, id); err == nil {
		data.DocumentID = exam.DocumentID
		data.OwnerID = exam.OwnerID
		data.TotalQuestions = exam.TotalQuestions
	}
	s.publish(ctx, events.ExamFailed, data)
}

// Reset is the operator action for an exam whose generation failed
func (s *examService) Reset(ctx context.Context, id uint, operatorID string) (*ExamStatusResponse, error) {
	var reset bool
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		row, err := txRepo.Exam().GetStatus(ctx, nil, id)
		if err != nil {
			return err
		}
		if row.Status != models.ExamError {
			return nil
		}
		if err := txRepo.Question().DeleteByExam(ctx, nil, id); err != nil {
			return err
		}
		reset, err = txRepo.Exam().CompareAndSetStatus(ctx, nil, id,
			[]models.ExamStatus{models.ExamError}, models.ExamPending,
			map[string]any{"error_message": nil, "ready_at": nil})
		if err != nil {
			return err
		}
		if !reset {
			// rolls back the delete
			return errResetLost
		}
		return nil
	})
	if err != nil && !errors.Is(err, errResetLost) {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to reset exam: %w", err)
	}

	row, err := s.repo.Exam().GetStatus(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam status: %w", err)
	}
	if !reset {
		return nil, NewStateConflictError("exam", id, string(row.Status), ReasonNotResettable)
	}

	s.logger.Info("Exam reset", "exam_id", id, "operator_id", operatorID)
	s.triggerGeneration(ctx, id)

	return buildExamStatus(row.Exam(), s.deps.Clock.Now()), nil
}

var errResetLost = errors.New("exam left error state during reset")

func (s *examService) publish(ctx context.Context, eventType events.EventType, data any) {
	if err := s.deps.Events.Publish(ctx, events.NewEvent(eventType, s.deps.Clock.Now(), data)); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}

func examTitle(requested, fileName string) string {
	if t := strings.TrimSpace(requested); t != "" {
		return t
	}
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	if base == "" || base == "." {
		base = "document"
	}
	title := []rune("Exam: " + base)
	if len(title) > validator.MaxTitleLength {
		title = title[:validator.MaxTitleLength]
	}
	return string(title)
}
