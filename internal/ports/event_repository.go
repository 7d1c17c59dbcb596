package ports

import (
	"context"

	"github.com/pm33/abtest/internal/domain"
)

type EventRepository interface {
	Create(ctx context.Context, event *domain.TrackingEvent) error
	ListByTest(ctx context.Context, testID string, limit int) ([]*domain.TrackingEvent, error)
	StatsByTest(ctx context.Context, testID string) ([]domain.VariantStats, error)
	CountByKind(ctx context.Context, testID string, kind domain.EventKind) (int64, error)
	DeleteByTest(ctx context.Context, testID string) (int64, error)
}
