package ports

import (
	"context"

	"github.com/pm33/abtest/internal/domain"
)

// MetricsExporter publishes assignment and tracking activity to an
// observability backend.
type MetricsExporter interface {
	RecordAssignment(ctx context.Context, testID, variantID string, sticky bool)
	RecordEvent(ctx context.Context, event *domain.TrackingEvent)
	Close(ctx context.Context) error
}
