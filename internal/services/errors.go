package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/validator"
)

var (
	// Document errors
	ErrDocumentNotFound    = errors.New("document not found")
	ErrDocumentNotAnalyzed = errors.New("document is not analyzed")
	ErrDocumentInUse       = errors.New("document is referenced by exams")
	ErrUnsupportedKind     = errors.New("unsupported document kind")
	ErrUploadTooLarge      = errors.New("upload exceeds size limit")
	ErrEmptyUpload         = errors.New("upload is empty")

	// Exam errors
	ErrExamNotFound   = errors.New("exam not found")
	ErrResultNotFound = errors.New("result not found")
)

type ValidationError = validator.ValidationError
type ValidationErrors = validator.ValidationErrors

// PermissionError is returned when the caller does not own the resource
type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// ConflictReason names the precondition that failed on an illegal transition
type ConflictReason string

const (
	ReasonExpired          ConflictReason = "expired"
	ReasonNotReady         ConflictReason = "not_ready"
	ReasonAlreadyStarted   ConflictReason = "already_started"
	ReasonAlreadyCompleted ConflictReason = "already_completed"
	ReasonNotStarted       ConflictReason = "not_started"
	ReasonAnswerExists     ConflictReason = "answer_exists"
	ReasonResultExists     ConflictReason = "result_exists"
	ReasonNotResettable    ConflictReason = "not_resettable"
)

// StateConflictError reports an illegal state transition with the exact reason
type StateConflictError struct {
	Resource string         `json:"resource"`
	ID       uint           `json:"id"`
	Status   string         `json:"status"`
	Reason   ConflictReason `json:"reason"`
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s %d in status %s: %s", e.Resource, e.ID, e.Status, e.Reason)
}

// Message is the text shown to the caller
func (e *StateConflictError) Message() string {
	switch e.Reason {
	case ReasonExpired:
		return "Exam has expired"
	case ReasonNotReady:
		if e.Status == "error" {
			return "Question generation failed"
		}
		return "Questions are still generating"
	case ReasonAlreadyStarted:
		return "Exam already started"
	case ReasonAlreadyCompleted:
		return "Exam already completed"
	case ReasonNotStarted:
		return "Exam has not been started"
	case ReasonAnswerExists:
		return "An answer was already submitted for this question"
	case ReasonResultExists:
		return "A result already exists for this exam"
	case ReasonNotResettable:
		return "Only failed items can be reset"
	default:
		return "Operation is not allowed in the current state"
	}
}

func NewStateConflictError(resource string, id uint, status string, reason ConflictReason) *StateConflictError {
	return &StateConflictError{Resource: resource, ID: id, Status: status, Reason: reason}
}

// IsStateConflict reports whether err is a StateConflictError with the given reason
func IsStateConflict(err error, reason ConflictReason) bool {
	var sce *StateConflictError
	return errors.As(err, &sce) && sce.Reason == reason
}

// ConsistencyError means a grading invariant did not hold; the commit is aborted
type ConsistencyError struct {
	ExamID    uint
	LearnerID string
	Detail    string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency violation for exam %d learner %s: %s", e.ExamID, e.LearnerID, e.Detail)
}
