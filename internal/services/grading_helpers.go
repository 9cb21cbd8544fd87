package services

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
)

// validateAnswerBatch checks every pair against the exam's questions.
// Duplicates were already rejected by ValidateSubmit. Any error rejects the whole batch.
func validateAnswerBatch(questions []*models.Question, answers []AnswerRequest) ValidationErrors {
	byID := indexQuestions(questions)

	var errs ValidationErrors
	for i, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("answers[%d].question_id", i),
				Message: "does not belong to this exam",
				Value:   a.QuestionID,
				Rule:    "unknown_question",
			})
			continue
		}
		if q.OptionByLetter(a.SelectedOption) == nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("answers[%d].selected_option", i),
				Message: "is not an option of this question",
				Value:   a.SelectedOption,
				Rule:    "unknown_option",
			})
		}
	}
	return errs
}

func indexQuestions(questions []*models.Question) map[uint]*models.Question {
	byID := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return byID
}

// gradeAnswers derives correctness and points at write time
func gradeAnswers(examID uint, learnerID string, questions []*models.Question, answers []AnswerRequest, now time.Time) []*models.StudentAnswer {
	byID := indexQuestions(questions)

	out := make([]*models.StudentAnswer, 0, len(answers))
	for _, a := range answers {
		q := byID[a.QuestionID]
		correct := q.CorrectOption()
		isCorrect := correct != nil && correct.Letter == a.SelectedOption

		points := 0
		if isCorrect {
			points = q.Points
		}
		out = append(out, &models.StudentAnswer{
			ExamID:         examID,
			QuestionID:     q.ID,
			LearnerID:      learnerID,
			SelectedOption: a.SelectedOption,
			IsCorrect:      isCorrect,
			PointsEarned:   points,
			AnsweredAt:     now,
		})
	}
	return out
}

// percentageScore is the point-weighted score, rounded half away from zero
func percentageScore(pointsEarned, totalPoints int) int {
	if totalPoints <= 0 {
		return 0
	}
	return int(math.Round(float64(pointsEarned) / float64(totalPoints) * 100))
}

// computeResult builds the result in one pass over questions and stored answers
func computeResult(exam *models.Exam, learnerID string, questions []*models.Question, answers []*models.StudentAnswer, now time.Time) (*models.ExamResult, error) {
	byQuestion := make(map[uint]*models.StudentAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	result := &models.ExamResult{
		ExamID:         exam.ID,
		LearnerID:      learnerID,
		TotalQuestions: len(questions),
		CompletedAt:    now,
	}

	outcomes := make([]models.QuestionOutcome, 0, len(questions))
	for _, q := range questions {
		result.TotalPoints += q.Points

		outcome := models.QuestionOutcome{
			QuestionID:     q.ID,
			QuestionNumber: q.QuestionNumber,
			Points:         q.Points,
		}
		if c := q.CorrectOption(); c != nil {
			outcome.CorrectOption = c.Letter
		}
		if a, ok := byQuestion[q.ID]; ok {
			selected := a.SelectedOption
			outcome.SelectedOption = &selected
			outcome.IsCorrect = a.IsCorrect
			outcome.PointsEarned = a.PointsEarned
		}
		outcomes = append(outcomes, outcome)
	}

	for _, a := range answers {
		if a.IsCorrect {
			result.CorrectAnswers++
		} else {
			result.IncorrectAnswers++
		}
		result.PointsEarned += a.PointsEarned
	}
	result.Unanswered = result.TotalQuestions - len(answers)

	result.PercentageScore = percentageScore(result.PointsEarned, result.TotalPoints)
	result.Grade = models.GradeFor(result.PercentageScore)
	result.Passed = result.PercentageScore >= exam.PassingScore

	breakdown, err := json.Marshal(outcomes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode breakdown: %w", err)
	}
	result.Breakdown = datatypes.JSON(breakdown)

	return result, nil
}

func checkResultInvariant(r *models.ExamResult) error {
	if r.CorrectAnswers+r.IncorrectAnswers+r.Unanswered != r.TotalQuestions || r.Unanswered < 0 {
		return &ConsistencyError{
			ExamID:    r.ExamID,
			LearnerID: r.LearnerID,
			Detail: fmt.Sprintf("correct %d + incorrect %d + unanswered %d != total %d",
				r.CorrectAnswers, r.IncorrectAnswers, r.Unanswered, r.TotalQuestions),
		}
	}
	if r.PointsEarned > r.TotalPoints {
		return &ConsistencyError{
			ExamID:    r.ExamID,
			LearnerID: r.LearnerID,
			Detail:    fmt.Sprintf("points earned %d exceed total %d", r.PointsEarned, r.TotalPoints),
		}
	}
	return nil
}
