package models

import "time"

// DocumentStatusRow is the narrow projection used for status polling
type DocumentStatusRow struct {
	ID           uint           `json:"id"`
	OwnerID      string         `json:"-"`
	Status       DocumentStatus `json:"status"`
	ErrorMessage *string        `json:"error_message"`
	AnalyzedAt   *time.Time     `json:"analyzed_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ExamStatusRow is the narrow projection used for status polling
type ExamStatusRow struct {
	ID             uint       `json:"id"`
	OwnerID        string     `json:"-"`
	Status         ExamStatus `json:"status"`
	TotalQuestions int        `json:"total_questions"`
	ErrorMessage   *string    `json:"error_message"`
	ExpiresAt      *time.Time `json:"expires_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Exam returns the row as an Exam so derived helpers can be reused
func (r *ExamStatusRow) Exam() *Exam {
	return &Exam{
		ID:             r.ID,
		OwnerID:        r.OwnerID,
		Status:         r.Status,
		TotalQuestions: r.TotalQuestions,
		ErrorMessage:   r.ErrorMessage,
		ExpiresAt:      r.ExpiresAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// StatusMessage is the human readable text shown for a document status
func (s DocumentStatus) StatusMessage() string {
	switch s {
	case DocumentUploaded:
		return "Document uploaded, waiting for analysis"
	case DocumentProcessing:
		return "Document is being analyzed"
	case DocumentAnalyzed:
		return "Document analyzed and ready for exam creation"
	case DocumentError:
		return "Document analysis failed"
	default:
		return "Unknown document status"
	}
}

// StatusMessage is the human readable text shown for an exam status
func (s ExamStatus) StatusMessage() string {
	switch s {
	case ExamPending:
		return "Exam is queued for question generation"
	case ExamProcessing:
		return "Questions are still generating"
	case ExamReady:
		return "Exam is ready to start"
	case ExamInProgress:
		return "Exam is in progress"
	case ExamCompleted:
		return "Exam already completed"
	case ExamError:
		return "Question generation failed"
	case ExamExpired:
		return "Exam has expired"
	default:
		return "Unknown exam status"
	}
}
