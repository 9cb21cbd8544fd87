package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/events"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
)

// startedExam returns an in-progress exam and its questions
func startedExam(t *testing.T, env *testEnv, count, passing int, limit *int) (*models.Exam, []*models.Question) {
	t.Helper()
	exam := env.readyExam(t, "learner-1", count, passing, limit)
	_, err := env.sessions.Start(context.Background(), exam.ID, "learner-1")
	require.NoError(t, err)
	return exam, env.questions(t, exam.ID)
}

// 10 questions worth 10 points, 7 right, 2 wrong, 1 skipped.
func TestGradingService_SevenOfTen(t *testing.T) {
	for _, passing := range []int{60, 70, 71} {
		env := newTestEnv(t)
		exam, questions := startedExam(t, env, 10, passing, nil)

		var answers []AnswerRequest
		for i, q := range questions[:9] {
			letter := q.CorrectOption().Letter
			if i >= 7 {
				letter = wrongLetter(q)
			}
			answers = append(answers, AnswerRequest{QuestionID: q.ID, SelectedOption: letter})
		}

		result, err := env.grading.Submit(context.Background(), exam.ID, "learner-1", &SubmitAnswersRequest{Answers: answers})
		require.NoError(t, err)

		assert.Equal(t, 10, result.TotalQuestions)
		assert.Equal(t, 7, result.CorrectAnswers)
		assert.Equal(t, 2, result.IncorrectAnswers)
		assert.Equal(t, 1, result.Unanswered)
		assert.Equal(t, 100, result.TotalPoints)
		assert.Equal(t, 70, result.PointsEarned)
		assert.Equal(t, 70, result.PercentageScore)
		assert.Equal(t, models.GradeC, result.Grade)
		assert.Equal(t, passing <= 70, result.Passed, "passing score %d", passing)

		var breakdown []models.QuestionOutcome
		require.NoError(t, json.Unmarshal(result.Breakdown, &breakdown))
		require.Len(t, breakdown, 10)
		assert.Nil(t, breakdown[9].SelectedOption)
	}
}

func TestGradingService_EmptyBatch(t *testing.T) {
	env := newTestEnv(t)
	exam, _ := startedExam(t, env, 3, 60, nil)

	result, err := env.grading.Submit(context.Background(), exam.ID, "learner-1", &SubmitAnswersRequest{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalQuestions)
	assert.Equal(t, 3, result.Unanswered)
	assert.Zero(t, result.CorrectAnswers+result.IncorrectAnswers)
	assert.Equal(t, 99, result.TotalPoints)
	assert.Zero(t, result.PercentageScore)
	assert.Equal(t, models.GradeF, result.Grade)
	assert.False(t, result.Passed)
}

// A second submission for the same triple is rejected and the first stays intact.
func TestGradingService_SecondSubmissionRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam, questions := startedExam(t, env, 2, 50, nil)

	first := &SubmitAnswersRequest{Answers: []AnswerRequest{{QuestionID: questions[0].ID, SelectedOption: questions[0].CorrectOption().Letter}}}
	result, err := env.grading.Submit(ctx, exam.ID, "learner-1", first)
	require.NoError(t, err)

	second := &SubmitAnswersRequest{Answers: []AnswerRequest{{QuestionID: questions[0].ID, SelectedOption: wrongLetter(questions[0])}}}
	_, err = env.grading.Submit(ctx, exam.ID, "learner-1", second)
	assert.True(t, IsStateConflict(err, ReasonAlreadyCompleted), "got %v", err)

	stored, err := env.repo.Answer().ListByExamAndLearner(ctx, nil, exam.ID, "learner-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].IsCorrect)
	assert.Equal(t, questions[0].CorrectOption().Letter, stored[0].SelectedOption)

	again, err := env.grading.GetResult(ctx, exam.ID, "learner-1")
	require.NoError(t, err)
	assert.Equal(t, result.ID, again.ID)
	assert.Equal(t, result.PercentageScore, again.PercentageScore)
}

func TestGradingService_InvalidBatchStoresNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam, questions := startedExam(t, env, 2, 50, nil)

	tests := []struct {
		name    string
		answers []AnswerRequest
		rule    string
	}{
		{
			name:    "unknown question",
			answers: []AnswerRequest{{QuestionID: questions[0].ID, SelectedOption: "A"}, {QuestionID: 9999, SelectedOption: "A"}},
			rule:    "unknown_question",
		},
		{
			name:    "duplicate in batch",
			answers: []AnswerRequest{{QuestionID: questions[0].ID, SelectedOption: "A"}, {QuestionID: questions[0].ID, SelectedOption: "B"}},
			rule:    "duplicate_answer",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.grading.Submit(ctx, exam.ID, "learner-1", &SubmitAnswersRequest{Answers: tt.answers})
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.rule, verrs[0].Rule)
		})
	}

	stored, err := env.repo.Answer().ListByExamAndLearner(ctx, nil, exam.ID, "learner-1")
	require.NoError(t, err)
	assert.Empty(t, stored)

	got, err := env.repo.Exam().GetByID(ctx, nil, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExamInProgress, got.Status)
}

func TestGradingService_StoredAnswerConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam, questions := startedExam(t, env, 2, 50, nil)

	pre := []*models.StudentAnswer{{ExamID: exam.ID, QuestionID: questions[1].ID, LearnerID: "learner-1", SelectedOption: "A", AnsweredAt: baseTime}}
	require.NoError(t, env.repo.Answer().CreateBatch(ctx, nil, pre))

	_, err := env.grading.Submit(ctx, exam.ID, "learner-1", &SubmitAnswersRequest{Answers: []AnswerRequest{
		{QuestionID: questions[0].ID, SelectedOption: "A"},
		{QuestionID: questions[1].ID, SelectedOption: "B"},
	}})
	assert.True(t, IsStateConflict(err, ReasonAnswerExists), "got %v", err)

	stored, err := env.repo.Answer().ListByExamAndLearner(ctx, nil, exam.ID, "learner-1")
	require.NoError(t, err)
	assert.Len(t, stored, 1, "the whole batch is rejected")
}

func TestGradingService_SubmitPreconditions(t *testing.T) {
	t.Run("expired", func(t *testing.T) {
		env := newTestEnv(t)
		exam, _ := startedExam(t, env, 2, 50, intPtr(1))
		env.clock.Advance(2 * time.Minute)

		_, err := env.grading.Submit(context.Background(), exam.ID, "learner-1", &SubmitAnswersRequest{})
		assert.True(t, IsStateConflict(err, ReasonExpired), "got %v", err)
	})

	t.Run("not started", func(t *testing.T) {
		env := newTestEnv(t)
		exam := env.readyExam(t, "learner-1", 2, 50, nil)

		_, err := env.grading.Submit(context.Background(), exam.ID, "learner-1", &SubmitAnswersRequest{})
		assert.True(t, IsStateConflict(err, ReasonNotStarted), "got %v", err)
	})

	t.Run("not owner", func(t *testing.T) {
		env := newTestEnv(t)
		exam, _ := startedExam(t, env, 2, 50, nil)

		_, err := env.grading.Submit(context.Background(), exam.ID, "learner-2", &SubmitAnswersRequest{})
		var permErr *PermissionError
		assert.ErrorAs(t, err, &permErr)
	})
}

func TestGradingService_UpdatesProgressAndPublishes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam, questions := startedExam(t, env, 2, 50, nil)

	_, err := env.grading.Submit(ctx, exam.ID, "learner-1", &SubmitAnswersRequest{Answers: []AnswerRequest{
		{QuestionID: questions[0].ID, SelectedOption: questions[0].CorrectOption().Letter},
		{QuestionID: questions[1].ID, SelectedOption: questions[1].CorrectOption().Letter},
	}})
	require.NoError(t, err)

	progress, err := env.progress.Get(ctx, "learner-1")
	require.NoError(t, err)
	assert.Equal(t, 1, progress.TotalExamsTaken)
	assert.Equal(t, 1, progress.TotalExamsPassed)
	assert.Equal(t, 100.0, progress.AverageScore)
	assert.Equal(t, 1, progress.CurrentStreak)
	assert.False(t, progress.NeedsAttention)

	completed := env.events.EventsOfType(events.ExamCompleted)
	require.Len(t, completed, 1)
	data, ok := completed[0].Data.(events.ExamCompletedData)
	require.True(t, ok)
	assert.Equal(t, 100, data.PercentageScore)
}

func TestValidateAnswerBatch(t *testing.T) {
	questions := []*models.Question{
		{ID: 1, Options: []models.QuestionOption{{Letter: "A"}, {Letter: "B", IsCorrect: true}, {Letter: "C"}, {Letter: "D"}}},
		{ID: 2, Options: []models.QuestionOption{{Letter: "A", IsCorrect: true}, {Letter: "B"}, {Letter: "C"}, {Letter: "D"}}},
	}

	tests := []struct {
		name    string
		answers []AnswerRequest
		rules   []string
	}{
		{name: "empty batch", answers: nil},
		{name: "valid subset", answers: []AnswerRequest{{QuestionID: 2, SelectedOption: "C"}}},
		{name: "unknown question", answers: []AnswerRequest{{QuestionID: 3, SelectedOption: "A"}}, rules: []string{"unknown_question"}},
		{name: "unknown option", answers: []AnswerRequest{{QuestionID: 1, SelectedOption: "E"}}, rules: []string{"unknown_option"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rules []string
			for _, e := range validateAnswerBatch(questions, tt.answers) {
				rules = append(rules, e.Rule)
			}
			assert.Equal(t, tt.rules, rules)
		})
	}
}

func TestPercentageScore(t *testing.T) {
	tests := []struct {
		earned, total, want int
	}{
		{0, 0, 0},
		{0, 99, 0},
		{33, 99, 33},
		{66, 99, 67},
		{99, 99, 100},
		{1, 8, 13},
		{70, 100, 70},
		{1, 200, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, percentageScore(tt.earned, tt.total), "%d/%d", tt.earned, tt.total)
	}
}

func TestCheckResultInvariant(t *testing.T) {
	ok := &models.ExamResult{TotalQuestions: 3, CorrectAnswers: 1, IncorrectAnswers: 1, Unanswered: 1, TotalPoints: 99, PointsEarned: 33}
	assert.NoError(t, checkResultInvariant(ok))

	broken := &models.ExamResult{ExamID: 4, LearnerID: "l", TotalQuestions: 3, CorrectAnswers: 2, IncorrectAnswers: 2}
	var ce *ConsistencyError
	require.ErrorAs(t, checkResultInvariant(broken), &ce)
	assert.EqualValues(t, 4, ce.ExamID)
}
