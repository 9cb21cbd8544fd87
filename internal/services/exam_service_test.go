package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/content"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/events"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/validator"
)

func TestExamService_GenerationInvariants(t *testing.T) {
	for _, count := range []int{1, 3, 7, 10} {
		env := newTestEnv(t)
		exam := env.readyExam(t, "learner-1", count, 60, nil)

		questions := env.questions(t, exam.ID)
		require.Len(t, questions, count)
		for i, q := range questions {
			assert.Equal(t, i+1, q.QuestionNumber)
			assert.Equal(t, 100/count, q.Points, "points are floor(100/count)")
			require.Len(t, q.Options, 4)

			correct := 0
			for j, o := range q.Options {
				assert.Equal(t, models.OptionLetters[j], o.Letter)
				if o.IsCorrect {
					correct++
				}
			}
			assert.Equal(t, 1, correct, "question %d", q.QuestionNumber)
		}
	}
}

func TestExamService_CreateRequiresAnalyzedDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := &models.Document{OwnerID: "learner-1", FileName: "a.txt", Kind: models.DocumentTXT, StorageKey: "k", Status: models.DocumentProcessing}
	require.NoError(t, env.repo.Document().Create(ctx, nil, doc))

	_, err := env.exams.Create(ctx, "learner-1", &CreateExamRequest{DocumentID: doc.ID, QuestionCount: 5})
	assert.ErrorIs(t, err, ErrDocumentNotAnalyzed)

	_, err = env.exams.Create(ctx, "learner-1", &CreateExamRequest{DocumentID: doc.ID, QuestionCount: 0})
	var verrs ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	_, err = env.exams.Create(ctx, "learner-1", &CreateExamRequest{DocumentID: 999, QuestionCount: 5})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestExamService_CreateFixesExpiry(t *testing.T) {
	env := newTestEnv(t)
	exam := env.readyExam(t, "learner-1", 2, 60, intPtr(30))

	require.NotNil(t, exam.ExpiresAt)
	assert.True(t, baseTime.Add(30*time.Minute).Equal(*exam.ExpiresAt))
	assert.Equal(t, "Exam: notes", exam.Title)
	assert.Len(t, env.events.EventsOfType(events.ExamReady), 1)
}

// Two triggers against one pending exam: only one does the work.
func TestExamService_ConcurrentGenerate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc := env.analyzedDocument(t, "learner-1", models.DocumentTXT)

	exam := &models.Exam{DocumentID: doc.ID, OwnerID: "learner-1", Title: "Race", TotalQuestions: 5, PassingScore: 60, Status: models.ExamPending}
	require.NoError(t, env.repo.Exam().Create(ctx, nil, exam))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, env.exams.Generate(ctx, exam.ID))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, env.content.generateCalls.Load())
	assert.Len(t, env.questions(t, exam.ID), 5)

	got, err := env.repo.Exam().GetByID(ctx, nil, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExamReady, got.Status)
}

func TestExamService_GenerationFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    models.DocumentKind
		status  models.ExamStatus
		message string
	}{
		{
			name:    "malformed text output fails",
			err:     &content.ErrInvalidResponse{Content: []byte("not json")},
			kind:    models.DocumentTXT,
			status:  models.ExamError,
			message: "Content service returned an unusable question set",
		},
		{
			name:   "malformed image output falls back to placeholders",
			err:    &content.ErrInvalidResponse{Content: []byte("not json")},
			kind:   models.DocumentImage,
			status: models.ExamReady,
		},
		{
			name:    "busy after retries",
			err:     &content.ErrServiceBusy{},
			kind:    models.DocumentImage,
			status:  models.ExamError,
			message: "Content service is busy, please retry later",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			env.content.failGenerate(tt.err)
			doc := env.analyzedDocument(t, "learner-1", tt.kind)

			exam, err := env.exams.Create(ctx, "learner-1", &CreateExamRequest{DocumentID: doc.ID, QuestionCount: 4})
			require.NoError(t, err)
			env.wait(t)

			status, err := env.exams.GetStatus(ctx, exam.ID, "learner-1")
			require.NoError(t, err)
			assert.Equal(t, tt.status, status.Status)

			if tt.status == models.ExamError {
				require.NotNil(t, status.ErrorMessage)
				assert.Equal(t, tt.message, *status.ErrorMessage)
				assert.Len(t, env.events.EventsOfType(events.ExamFailed), 1)
				return
			}

			questions := env.questions(t, exam.ID)
			require.Len(t, questions, 4)
			for i, q := range questions {
				assert.Equal(t, models.OptionLetters[i%4], q.CorrectOption().Letter)
			}
		})
	}
}

func TestExamService_FinalStatusWriteFailureIsRecorded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc := env.analyzedDocument(t, "learner-1", models.DocumentTXT)
	exam := &models.Exam{DocumentID: doc.ID, OwnerID: "learner-1", Title: "Cells", TotalQuestions: 3, PassingScore: 60, Status: models.ExamPending}
	require.NoError(t, env.repo.Exam().Create(ctx, nil, exam))

	repo := &flakyRepo{Repository: env.repo, examTarget: models.ExamReady}
	svc := NewExamService(repo, discardLogger(), validator.New(), env.deps)
	require.NoError(t, svc.Generate(ctx, exam.ID))

	got, err := env.repo.Exam().GetByID(ctx, nil, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExamError, got.Status, "never left in processing")
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "connection reset")
	assert.Len(t, env.events.EventsOfType(events.ExamFailed), 1)
	assert.Empty(t, env.events.EventsOfType(events.ExamReady))
}

func TestExamService_ResetAfterFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.content.failGenerate(&content.ErrRateLimit{})
	doc := env.analyzedDocument(t, "learner-1", models.DocumentTXT)

	exam, err := env.exams.Create(ctx, "learner-1", &CreateExamRequest{DocumentID: doc.ID, QuestionCount: 3})
	require.NoError(t, err)
	env.wait(t)

	// a partial set left behind by the failed run
	seed := content.PlaceholderQuestions(1)[0]
	require.NoError(t, env.repo.Question().CreateWithOptions(ctx, nil, buildQuestion(exam.ID, 1, 33, seed)))

	env.content.failGenerate(nil)
	status, err := env.exams.Reset(ctx, exam.ID, "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExamPending, status.Status)
	env.wait(t)

	got, err := env.exams.GetStatus(ctx, exam.ID, "learner-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExamReady, got.Status)
	assert.Nil(t, got.ErrorMessage)
	assert.Len(t, env.questions(t, exam.ID), 3)

	_, err = env.exams.Reset(ctx, exam.ID, "teacher-1")
	assert.True(t, IsStateConflict(err, ReasonNotResettable))
}

func TestExamService_LearnerViewHidesCorrectness(t *testing.T) {
	env := newTestEnv(t)
	exam := env.readyExam(t, "learner-1", 3, 60, nil)

	view, err := env.exams.GetForLearner(context.Background(), exam.ID, "learner-1")
	require.NoError(t, err)
	require.Len(t, view.Questions, 3)

	body, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "is_correct")
	assert.NotContains(t, string(body), "explanation")

	_, err = env.exams.GetForLearner(context.Background(), exam.ID, "someone-else")
	var permErr *PermissionError
	assert.ErrorAs(t, err, &permErr)
}

func TestExamService_StatusDerivesExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.readyExam(t, "learner-1", 2, 60, intPtr(1))

	env.clock.Advance(61 * time.Second)
	status, err := env.exams.GetStatus(ctx, exam.ID, "learner-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExamExpired, status.Status)
	assert.Equal(t, "Exam has expired", status.Message)
	assert.EqualValues(t, 0, *status.RemainingSeconds)

	stored, err := env.repo.Exam().GetByID(ctx, nil, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExamReady, stored.Status, "reads never write expired")

	list, err := env.exams.List(ctx, "learner-1", repositories.ExamFilters{})
	require.NoError(t, err)
	require.Len(t, list.Exams, 1)
	assert.Equal(t, models.ExamExpired, list.Exams[0].EffectiveStatus)
}
