package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pm33/abtest/internal/domain"
	"github.com/pm33/abtest/internal/ports"
)

// Service provides test analytics: event recording and per-variant
// conversion reporting.
type Service struct {
	tests  ports.TestRepository
	events ports.EventRepository
	logger *slog.Logger
}

func NewService(tests ports.TestRepository, events ports.EventRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{tests: tests, events: events, logger: logger}
}

// RecordEvent persists a tracking event for later aggregation. The test
// must exist; the variant id is accepted as-is since configurations may
// have changed since the event was generated client-side.
func (s *Service) RecordEvent(ctx context.Context, kind domain.EventKind, testID, variantID, visitorID string, properties map[string]string) (*domain.TrackingEvent, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}

	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up test: %w", err)
	}
	if test == nil {
		return nil, &domain.NotFoundError{Kind: "test", ID: testID}
	}

	event := &domain.TrackingEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		TestID:     testID,
		VariantID:  variantID,
		VisitorID:  visitorID,
		Timestamp:  time.Now().UTC(),
		Properties: properties,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record event: %w", err)
	}
	return event, nil
}

// Report builds the comparison view for a test: per-variant impression
// and conversion counts, conversion rates, and a winner when one variant
// leads with statistical confidence.
func (s *Service) Report(ctx context.Context, testID string) (*domain.TestReport, error) {
	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up test: %w", err)
	}
	if test == nil {
		return nil, &domain.NotFoundError{Kind: "test", ID: testID}
	}

	stats, err := s.events.StatsByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate events: %w", err)
	}

	// Include configured variants that have no events yet so the report
	// always covers the full configuration.
	byVariant := make(map[string]domain.VariantStats, len(stats))
	for _, vs := range stats {
		byVariant[vs.VariantID] = vs
	}
	merged := make([]domain.VariantStats, 0, len(test.Variants))
	for _, v := range test.Variants {
		if vs, ok := byVariant[v.ID]; ok {
			merged = append(merged, vs)
			delete(byVariant, v.ID)
		} else {
			merged = append(merged, domain.VariantStats{TestID: testID, VariantID: v.ID})
		}
	}
	// Events for variants no longer configured still count; they show
	// up at the end of the report.
	for _, vs := range stats {
		if _, pending := byVariant[vs.VariantID]; pending {
			merged = append(merged, vs)
		}
	}

	report := &domain.TestReport{
		TestID:   testID,
		TestName: test.Name,
		Variants: merged,
	}
	s.determineWinner(report)
	return report, nil
}

// ReportAll builds reports for every configured test.
func (s *Service) ReportAll(ctx context.Context) ([]*domain.TestReport, error) {
	tests, err := s.tests.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	reports := make([]*domain.TestReport, 0, len(tests))
	for _, test := range tests {
		report, err := s.Report(ctx, test.ID)
		if err != nil {
			s.logger.Warn("skipping report", "test_id", test.ID, "error", err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}
