package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
)

// compareAndSetStatus is the single write path for status fields. The
// precondition and the write are one UPDATE statement, so two concurrent
// callers can never both observe success for the same transition.
func compareAndSetStatus[S ~string](ctx context.Context, db *gorm.DB, model any, id uint, from []S, to S, set map[string]any, guards ...repositories.Guard) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("status transition to %q requires at least one source status", to)
	}

	updates := make(map[string]any, len(set)+1)
	for column, value := range set {
		updates[column] = value
	}
	updates["status"] = to

	query := db.WithContext(ctx).Model(model).Where("id = ? AND status IN ?", id, from)
	for _, g := range guards {
		query = query.Where(g.Query, g.Args...)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to transition status to %q: %w", to, result.Error)
	}

	return result.RowsAffected == 1, nil
}
