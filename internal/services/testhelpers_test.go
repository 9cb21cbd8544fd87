package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/content"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/events"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/storage"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/testutil"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/validator"
)

var baseTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeContent stands in for the content service
type fakeContent struct {
	mu            sync.Mutex
	extractText   string
	extractErr    error
	generateErr   error
	generate      func(text string, count int) []content.QuestionDescriptor
	generateCalls atomic.Int32
	extractCalls  atomic.Int32
}

func (f *fakeContent) ExtractText(_ context.Context, _ []byte, _ models.DocumentKind, _ string) (string, error) {
	f.extractCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.extractErr != nil {
		return "", f.extractErr
	}
	return f.extractText, nil
}

func (f *fakeContent) GenerateQuestions(_ context.Context, text string, count int) ([]content.QuestionDescriptor, error) {
	f.generateCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	if f.generate != nil {
		return f.generate(text, count), nil
	}
	return content.PlaceholderQuestions(count), nil
}

func (f *fakeContent) failGenerate(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateErr = err
}

type testEnv struct {
	db      *gorm.DB
	repo    repositories.Repository
	clock   *testClock
	content *fakeContent
	events  *events.MockEventPublisher
	blobs   *storage.MemoryStore
	tasks   *TaskRunner
	deps    Dependencies

	documents DocumentService
	exams     ExamService
	sessions  SessionService
	grading   GradingService
	progress  ProgressService
	export    ExportService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithCache(t, nil)
}

// newTestEnvWithCache wires the repositories to redisClient when it is non-nil
func newTestEnvWithCache(t *testing.T, redisClient *redis.Client) *testEnv {
	t.Helper()

	logger := discardLogger()
	db := testutil.NewTestDB(t)
	env := &testEnv{
		db:      db,
		repo:    postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, RedisClient: redisClient}),
		clock:   &testClock{now: baseTime},
		content: &fakeContent{extractText: "Photosynthesis converts light into chemical energy."},
		events:  events.NewMockEventPublisher(logger),
		blobs:   storage.NewMemoryStore(),
		tasks:   NewTaskRunner(logger),
	}

	deps := Dependencies{
		Content: env.content,
		Blobs:   env.blobs,
		Events:  env.events,
		Clock:   env.clock,
		Tasks:   env.tasks,
	}
	env.deps = deps
	manager := NewDefaultServiceManager(db, env.repo, logger, validator.New(), deps)
	require.NoError(t, manager.Initialize(context.Background()))
	t.Cleanup(func() { _ = manager.Shutdown(context.Background()) })

	env.documents = manager.Document()
	env.exams = manager.Exam()
	env.sessions = manager.Session()
	env.grading = manager.Grading()
	env.progress = manager.Progress()
	env.export = manager.Export()
	return env
}

// wait drains every background stage
func (e *testEnv) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.tasks.Wait(ctx))
}

// analyzedDocument stores a document that already went through extraction
func (e *testEnv) analyzedDocument(t *testing.T, ownerID string, kind models.DocumentKind) *models.Document {
	t.Helper()
	text := "Mitochondria are the powerhouse of the cell."
	doc := &models.Document{
		OwnerID:     ownerID,
		FileName:    "notes." + string(kind),
		Kind:        kind,
		StorageKey:  "documents/" + ownerID + "/notes",
		Status:      models.DocumentAnalyzed,
		ContentText: &text,
	}
	require.NoError(t, e.repo.Document().Create(context.Background(), nil, doc))
	return doc
}

// readyExam creates an exam through the service and waits for generation
func (e *testEnv) readyExam(t *testing.T, ownerID string, count, passing int, limit *int) *models.Exam {
	t.Helper()
	doc := e.analyzedDocument(t, ownerID, models.DocumentTXT)

	exam, err := e.exams.Create(context.Background(), ownerID, &CreateExamRequest{
		DocumentID:       doc.ID,
		QuestionCount:    count,
		PassingScore:     &passing,
		TimeLimitMinutes: limit,
	})
	require.NoError(t, err)
	e.wait(t)

	got, err := e.repo.Exam().GetByID(context.Background(), nil, exam.ID)
	require.NoError(t, err)
	require.Equal(t, models.ExamReady, got.Status)
	return got
}

func (e *testEnv) questions(t *testing.T, examID uint) []*models.Question {
	t.Helper()
	qs, err := e.repo.Question().GetByExam(context.Background(), nil, examID)
	require.NoError(t, err)
	return qs
}

// storedResult records a completed exam result for learnerID without a session
func (e *testEnv) storedResult(t *testing.T, learnerID string, score int, completedAt time.Time) {
	t.Helper()
	ctx := context.Background()
	doc := e.analyzedDocument(t, learnerID, models.DocumentTXT)
	exam := &models.Exam{DocumentID: doc.ID, OwnerID: learnerID, Title: "T", TotalQuestions: 1, PassingScore: 60, Status: models.ExamCompleted}
	require.NoError(t, e.repo.Exam().Create(ctx, nil, exam))
	require.NoError(t, e.repo.Result().Create(ctx, nil, &models.ExamResult{
		ExamID: exam.ID, LearnerID: learnerID, TotalQuestions: 1,
		PercentageScore: score, Passed: score >= 60, Grade: models.GradeFor(score),
		CompletedAt: completedAt,
	}))
}

var errConnectionReset = errors.New("connection reset by peer")

// flakyRepo fails the status write into one target state and passes everything else through
type flakyRepo struct {
	repositories.Repository
	docTarget  models.DocumentStatus
	examTarget models.ExamStatus
}

func (r *flakyRepo) Document() repositories.DocumentRepository {
	return &flakyDocumentRepo{DocumentRepository: r.Repository.Document(), target: r.docTarget}
}

func (r *flakyRepo) Exam() repositories.ExamRepository {
	return &flakyExamRepo{ExamRepository: r.Repository.Exam(), target: r.examTarget}
}

type flakyDocumentRepo struct {
	repositories.DocumentRepository
	target models.DocumentStatus
}

func (r *flakyDocumentRepo) CompareAndSetStatus(ctx context.Context, tx *gorm.DB, id uint, from []models.DocumentStatus, to models.DocumentStatus, set map[string]any) (bool, error) {
	if to == r.target {
		return false, errConnectionReset
	}
	return r.DocumentRepository.CompareAndSetStatus(ctx, tx, id, from, to, set)
}

type flakyExamRepo struct {
	repositories.ExamRepository
	target models.ExamStatus
}

func (r *flakyExamRepo) CompareAndSetStatus(ctx context.Context, tx *gorm.DB, id uint, from []models.ExamStatus, to models.ExamStatus, set map[string]any, guards ...repositories.Guard) (bool, error) {
	if to == r.target {
		return false, errConnectionReset
	}
	return r.ExamRepository.CompareAndSetStatus(ctx, tx, id, from, to, set, guards...)
}

func wrongLetter(q *models.Question) string {
	for _, o := range q.Options {
		if !o.IsCorrect {
			return o.Letter
		}
	}
	return ""
}

func intPtr(v int) *int { return &v }
