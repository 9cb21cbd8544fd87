package repositories

import (
	"time"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type DocumentFilters struct {
	Status    *models.DocumentStatus `json:"status"`
	Kind      *models.DocumentKind   `json:"kind"`
	DateFrom  *time.Time             `json:"date_from"`
	DateTo    *time.Time             `json:"date_to"`
	Limit     int                    `json:"limit"`
	Offset    int                    `json:"offset"`
	SortBy    string                 `json:"sort_by"`    // "created_at", "file_name", "status"
	SortOrder string                 `json:"sort_order"` // "asc", "desc"
}

type ExamFilters struct {
	Status     *models.ExamStatus `json:"status"`
	DocumentID *uint              `json:"document_id"`
	DateFrom   *time.Time         `json:"date_from"`
	DateTo     *time.Time         `json:"date_to"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
	SortBy     string             `json:"sort_by"`
	SortOrder  string             `json:"sort_order"`
}

// ===== STATUS LEDGER =====

// Guard is an extra predicate ANDed into a status transition, e.g. an expiry check.
type Guard struct {
	Query string
	Args  []any
}

// NotExpiredGuard restricts a transition to rows whose expiry is absent or after now
func NotExpiredGuard(now time.Time) Guard {
	return Guard{Query: "(expires_at IS NULL OR expires_at >= ?)", Args: []any{now}}
}
