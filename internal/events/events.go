// Package events publishes pipeline domain events after terminal transitions.
package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "exam-pipeline-service"
	EventVersion = "1.0"
)

type EventType string

const (
	DocumentAnalyzed EventType = "document.analyzed"
	DocumentFailed   EventType = "document.failed"
	ExamReady        EventType = "exam.ready"
	ExamFailed       EventType = "exam.failed"
	ExamCompleted    EventType = "exam.completed"
)

// Event is the envelope written to the topic.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

func NewEvent(eventType EventType, at time.Time, data any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: at.UTC(),
		Data:      data,
	}
}

type DocumentEventData struct {
	DocumentID   uint   `json:"document_id"`
	OwnerID      string `json:"owner_id"`
	Kind         string `json:"kind"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type ExamEventData struct {
	ExamID         uint   `json:"exam_id"`
	DocumentID     uint   `json:"document_id"`
	OwnerID        string `json:"owner_id"`
	TotalQuestions int    `json:"total_questions"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

type ExamCompletedData struct {
	ExamID          uint   `json:"exam_id"`
	LearnerID       string `json:"learner_id"`
	PercentageScore int    `json:"percentage_score"`
	Grade           string `json:"grade"`
	Passed          bool   `json:"passed"`
}
