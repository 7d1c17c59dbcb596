package ports

import (
	"context"

	"github.com/pm33/abtest/internal/domain"
)

// AssignmentStore is the key-value persistence contract for sticky
// assignments, keyed by (testID, visitorID). Get returns (nil, nil)
// when no record exists; the engine treats any read failure the same
// as absence.
type AssignmentStore interface {
	Get(ctx context.Context, testID, visitorID string) (*domain.Assignment, error)
	Put(ctx context.Context, assignment *domain.Assignment) error
	DeleteByTest(ctx context.Context, testID string) (int64, error)
}
