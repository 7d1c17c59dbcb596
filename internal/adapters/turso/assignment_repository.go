package turso

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pm33/abtest/internal/domain"
)

// AssignmentRepository persists sticky assignments keyed by
// (test_id, visitor_id). Writes are upserts, last write wins.
type AssignmentRepository struct {
	db *sql.DB
}

func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Get(ctx context.Context, testID, visitorID string) (*domain.Assignment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT test_id, visitor_id, variant_id, assigned_at
		FROM assignments WHERE test_id = ? AND visitor_id = ?
	`, testID, visitorID)

	var a domain.Assignment
	var assignedAt string
	err := row.Scan(&a.TestID, &a.VisitorID, &a.VariantID, &assignedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	a.AssignedAt, _ = time.Parse(time.RFC3339, assignedAt)
	return &a, nil
}

func (r *AssignmentRepository) Put(ctx context.Context, assignment *domain.Assignment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assignments (test_id, visitor_id, variant_id, assigned_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (test_id, visitor_id)
		DO UPDATE SET variant_id = excluded.variant_id, assigned_at = excluded.assigned_at
	`, assignment.TestID, assignment.VisitorID, assignment.VariantID,
		assignment.AssignedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to put assignment: %w", err)
	}
	return nil
}

func (r *AssignmentRepository) DeleteByTest(ctx context.Context, testID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE test_id = ?`, testID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete assignments: %w", err)
	}
	return res.RowsAffected()
}
