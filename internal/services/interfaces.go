package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

type CreateExamRequest = validator.ExamCreateRequest
type SubmitAnswersRequest = validator.SubmitAnswersRequest
type AnswerRequest = validator.AnswerRequest

// UploadDocumentRequest carries the raw upload to the document service
type UploadDocumentRequest struct {
	FileName string
	MimeType string
	Data     []byte
}

type DocumentListResponse struct {
	Documents []*models.Document `json:"documents"`
	Total     int64              `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

type DocumentStatusResponse struct {
	*models.DocumentStatusRow
	Message string `json:"message"`
}

type ExamStatusResponse struct {
	ID               uint              `json:"id"`
	Status           models.ExamStatus `json:"status"`
	TotalQuestions   int               `json:"total_questions"`
	ErrorMessage     *string           `json:"error_message"`
	ExpiresAt        *time.Time        `json:"expires_at"`
	RemainingSeconds *int64            `json:"remaining_seconds"`
	Message          string            `json:"message"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

type ExamListResponse struct {
	Exams  []*ExamSummary `json:"exams"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ExamSummary is an exam with its status as seen at read time
type ExamSummary struct {
	*models.Exam
	EffectiveStatus models.ExamStatus `json:"effective_status"`
}

// ExamView is the learner's view of an exam. Correctness is never included.
type ExamView struct {
	ID               uint              `json:"id"`
	DocumentID       uint              `json:"document_id"`
	Title            string            `json:"title"`
	Status           models.ExamStatus `json:"status"`
	TotalQuestions   int               `json:"total_questions"`
	PassingScore     int               `json:"passing_score"`
	TimeLimitMinutes *int              `json:"time_limit_minutes"`
	ExpiresAt        *time.Time        `json:"expires_at"`
	RemainingSeconds *int64            `json:"remaining_seconds"`
	StartedAt        *time.Time        `json:"started_at"`
	Questions        []QuestionView    `json:"questions,omitempty"`
}

type QuestionView struct {
	ID             uint                   `json:"id"`
	QuestionNumber int                    `json:"question_number"`
	Text           string                 `json:"text"`
	Points         int                    `json:"points"`
	Difficulty     models.DifficultyLevel `json:"difficulty"`
	Options        []OptionView           `json:"options"`
}

type OptionView struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

type ProgressResponse struct {
	*models.LearnerProgress
	PassRate       float64 `json:"pass_rate"`
	NeedsAttention bool    `json:"needs_attention"`
}

// ===== SERVICE INTERFACES =====

// DocumentService owns ingestion and the content extraction stage
type DocumentService interface {
	Upload(ctx context.Context, ownerID string, req *UploadDocumentRequest) (*models.Document, error)
	GetByID(ctx context.Context, id uint, userID string) (*models.Document, error)
	GetStatus(ctx context.Context, id uint, userID string) (*DocumentStatusResponse, error)
	List(ctx context.Context, ownerID string, filters repositories.DocumentFilters) (*DocumentListResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	// Extract runs the extraction stage synchronously. It never returns
	// stage failures; those are recorded on the document.
	Extract(ctx context.Context, id uint) error

	// Reset moves a failed document back to uploaded and re-runs extraction
	Reset(ctx context.Context, id uint, operatorID string) (*DocumentStatusResponse, error)
}

// ExamService owns exam creation and the question generation stage
type ExamService interface {
	Create(ctx context.Context, ownerID string, req *CreateExamRequest) (*models.Exam, error)
	GetForLearner(ctx context.Context, id uint, userID string) (*ExamView, error)
	GetStatus(ctx context.Context, id uint, userID string) (*ExamStatusResponse, error)
	List(ctx context.Context, ownerID string, filters repositories.ExamFilters) (*ExamListResponse, error)

	// Generate runs the generation stage synchronously. Stage failures are
	// recorded on the exam, not returned.
	Generate(ctx context.Context, id uint) error

	// Reset drops a partial question set of a failed exam and re-runs generation
	Reset(ctx context.Context, id uint, operatorID string) (*ExamStatusResponse, error)
}

// SessionService drives the exam session state machine
type SessionService interface {
	Start(ctx context.Context, examID uint, learnerID string) (*ExamView, error)
}

// GradingService grades a submission and stores the result
type GradingService interface {
	Submit(ctx context.Context, examID uint, learnerID string, req *SubmitAnswersRequest) (*models.ExamResult, error)
	GetResult(ctx context.Context, examID uint, learnerID string) (*models.ExamResult, error)
}

// ProgressService maintains a learner's longitudinal aggregate
type ProgressService interface {
	Recompute(ctx context.Context, learnerID string) (*models.LearnerProgress, error)
	Get(ctx context.Context, learnerID string) (*ProgressResponse, error)
}

// ExportService renders reports
type ExportService interface {
	ExportLearnerReport(ctx context.Context, learnerID string, w io.Writer) error
}

// ServiceManager manages all services
type ServiceManager interface {
	Document() DocumentService
	Exam() ExamService
	Session() SessionService
	Grading() GradingService
	Progress() ProgressService
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
