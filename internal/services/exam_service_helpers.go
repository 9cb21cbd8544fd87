package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/content"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
)

// pointsPerQuestion splits 100 points evenly; the remainder is dropped
func pointsPerQuestion(count int) int {
	if count <= 0 {
		return 0
	}
	return 100 / count
}

func buildQuestion(examID uint, number, points int, d content.QuestionDescriptor) *models.Question {
	q := &models.Question{
		ExamID:         examID,
		QuestionNumber: number,
		Text:           d.QuestionText,
		Points:         points,
		Difficulty:     models.DifficultyLevel(strings.ToLower(d.Difficulty)),
	}
	if !models.IsValidDifficulty(q.Difficulty) {
		q.Difficulty = models.DifficultyMedium
	}
	if e := strings.TrimSpace(d.Explanation); e != "" {
		q.Explanation = &e
	}

	q.Options = make([]models.QuestionOption, 0, len(d.Options))
	for i, o := range d.Options {
		q.Options = append(q.Options, models.QuestionOption{
			Letter:      o.Letter,
			Text:        o.Text,
			IsCorrect:   o.IsCorrect,
			OrderNumber: i + 1,
		})
	}
	return q
}

func showsQuestions(status models.ExamStatus) bool {
	switch status {
	case models.ExamReady, models.ExamInProgress, models.ExamCompleted:
		return true
	}
	return false
}

func buildExamView(exam *models.Exam, questions []*models.Question, now time.Time) *ExamView {
	view := &ExamView{
		ID:               exam.ID,
		DocumentID:       exam.DocumentID,
		Title:            exam.Title,
		Status:           exam.EffectiveStatus(now),
		TotalQuestions:   exam.TotalQuestions,
		PassingScore:     exam.PassingScore,
		TimeLimitMinutes: exam.TimeLimitMinutes,
		ExpiresAt:        exam.ExpiresAt,
		RemainingSeconds: exam.RemainingSeconds(now),
		StartedAt:        exam.StartedAt,
	}

	for _, q := range questions {
		qv := QuestionView{
			ID:             q.ID,
			QuestionNumber: q.QuestionNumber,
			Text:           q.Text,
			Points:         q.Points,
			Difficulty:     q.Difficulty,
			Options:        make([]OptionView, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			qv.Options = append(qv.Options, OptionView{Letter: o.Letter, Text: o.Text})
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

func buildExamStatus(exam *models.Exam, now time.Time) *ExamStatusResponse {
	status := exam.EffectiveStatus(now)
	return &ExamStatusResponse{
		ID:               exam.ID,
		Status:           status,
		TotalQuestions:   exam.TotalQuestions,
		ErrorMessage:     exam.ErrorMessage,
		ExpiresAt:        exam.ExpiresAt,
		RemainingSeconds: exam.RemainingSeconds(now),
		Message:          status.StatusMessage(),
		UpdatedAt:        exam.UpdatedAt,
	}
}

func generationFailureMessage(err error) string {
	var (
		rl   *content.ErrRateLimit
		busy *content.ErrServiceBusy
		down *content.ErrProviderUnavailable
	)
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return "Source document no longer exists"
	case errors.Is(err, ErrDocumentNotAnalyzed), errors.Is(err, content.ErrEmptyText):
		return "Source document has no analyzed text"
	case errors.As(err, &rl):
		return "Content service rate limit reached, please retry later"
	case errors.As(err, &busy):
		return "Content service is busy, please retry later"
	case errors.As(err, &down):
		return "Content service is unavailable"
	case content.IsMalformed(err):
		return "Content service returned an unusable question set"
	default:
		return fmt.Sprintf("Question generation failed: %v", err)
	}
}
