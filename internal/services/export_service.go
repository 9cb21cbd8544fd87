package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
)

const (
	resultsSheet  = "Results"
	progressSheet = "Progress"
)

var resultsHeader = []string{
	"Exam ID", "Exam", "Completed At", "Questions", "Correct", "Incorrect",
	"Unanswered", "Points", "Total Points", "Score %", "Grade", "Passed",
}

type exportService struct {
	repo     repositories.Repository
	logger   *slog.Logger
	deps     Dependencies
	progress ProgressService
}

func NewExportService(repo repositories.Repository, logger *slog.Logger, deps Dependencies) ExportService {
	deps = deps.withDefaults(logger)
	return &exportService{
		repo:     repo,
		logger:   logger,
		deps:     deps,
		progress: NewProgressService(repo, logger, deps),
	}
}

// ExportLearnerReport writes a workbook with the learner's results and progress
func (s *exportService) ExportLearnerReport(ctx context.Context, learnerID string, w io.Writer) error {
	results, err := s.repo.Result().ListByLearner(ctx, nil, learnerID)
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}
	progress, err := s.progress.Get(ctx, learnerID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeRow(f, resultsSheet, 1, toAnySlice(resultsHeader)); err != nil {
		return err
	}
	if err := f.SetCellStyle(resultsSheet, "A1", "L1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	titles := make(map[uint]string)
	for i, r := range results {
		title, ok := titles[r.ExamID]
		if !ok {
			title = s.examTitle(ctx, r.ExamID)
			titles[r.ExamID] = title
		}
		if err := writeRow(f, resultsSheet, i+2, resultRow(r, title)); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(resultsSheet, "B", "C", 28); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if _, err := f.NewSheet(progressSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	for i, row := range progressRows(progress) {
		if err := writeRow(f, progressSheet, i+1, row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(progressSheet, "A1", fmt.Sprintf("A%d", len(progressRows(progress))), headerStyle); err != nil {
		return fmt.Errorf("failed to style labels: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Learner report exported", "learner_id", learnerID, "results", len(results))
	return nil
}

func (s *exportService) examTitle(ctx context.Context, examID uint) string {
	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		return fmt.Sprintf("Exam %d", examID)
	}
	return exam.Title
}

func resultRow(r *models.ExamResult, title string) []any {
	return []any{
		r.ExamID, title, r.CompletedAt.UTC().Format("2006-01-02 15:04:05"),
		r.TotalQuestions, r.CorrectAnswers, r.IncorrectAnswers, r.Unanswered,
		r.PointsEarned, r.TotalPoints, r.PercentageScore, string(r.Grade), r.Passed,
	}
}

func progressRows(p *ProgressResponse) [][]any {
	lastActivity := ""
	if p.LastActivityAt != nil {
		lastActivity = p.LastActivityAt.UTC().Format("2006-01-02 15:04:05")
	}
	return [][]any{
		{"Learner", p.LearnerID},
		{"Exams Taken", p.TotalExamsTaken},
		{"Exams Passed", p.TotalExamsPassed},
		{"Pass Rate %", p.PassRate},
		{"Average Score", p.AverageScore},
		{"Highest Score", p.HighestScore},
		{"Lowest Score", p.LowestScore},
		{"Current Streak", p.CurrentStreak},
		{"Longest Streak", p.LongestStreak},
		{"Last Activity", lastActivity},
		{"Needs Attention", p.NeedsAttention},
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("invalid cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
