package validator

import (
	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
)

// DocumentUploadRequest describes an uploaded file after the multipart form is read
type DocumentUploadRequest struct {
	FileName  string              `json:"file_name" validate:"required,max=255"`
	MimeType  string              `json:"mime_type" validate:"max=100"`
	Kind      models.DocumentKind `json:"kind" validate:"required,document_kind"`
	SizeBytes int64               `json:"size_bytes" validate:"min=1"`
}

// ExamCreateRequest represents the request structure for creating an exam from a document
type ExamCreateRequest struct {
	DocumentID       uint   `json:"document_id" validate:"required"`
	Title            string `json:"title" validate:"omitempty,exam_title"`
	QuestionCount    int    `json:"question_count" validate:"required,question_count"`
	PassingScore     *int   `json:"passing_score" validate:"omitempty,passing_score"`
	TimeLimitMinutes *int   `json:"time_limit_minutes" validate:"omitempty,min=0,max=600"`
}

// AnswerRequest is one (question, option) pair of a submission
type AnswerRequest struct {
	QuestionID     uint   `json:"question_id" validate:"required"`
	SelectedOption string `json:"selected_option" validate:"required,option_letter"`
}

// SubmitAnswersRequest is the single batch submitted to complete an exam.
// An empty batch is legal and grades every question as unanswered.
type SubmitAnswersRequest struct {
	Answers []AnswerRequest `json:"answers" validate:"omitempty,max=50,dive"`
}

// ListRequest carries list pagination from query strings
type ListRequest struct {
	Status    string `form:"status"`
	Limit     int    `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int    `form:"offset" validate:"omitempty,min=0"`
	SortBy    string `form:"sort_by" validate:"omitempty,oneof=created_at updated_at id title file_name status"`
	SortOrder string `form:"sort_order" validate:"omitempty,oneof=asc desc ASC DESC"`
}
