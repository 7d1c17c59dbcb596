package otel

import (
	"context"

	"github.com/pm33/abtest/internal/domain"
)

// NoOpExporter is a metrics exporter that does nothing.
type NoOpExporter struct{}

// NewNoOpExporter creates a new no-op exporter for graceful degradation.
func NewNoOpExporter() *NoOpExporter {
	return &NoOpExporter{}
}

func (e *NoOpExporter) RecordAssignment(ctx context.Context, testID, variantID string, sticky bool) {}

func (e *NoOpExporter) RecordEvent(ctx context.Context, event *domain.TrackingEvent) {}

func (e *NoOpExporter) Close(ctx context.Context) error {
	return nil
}
