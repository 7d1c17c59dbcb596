package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pm33/abtest/internal/domain"
	"github.com/pm33/abtest/internal/ports"
)

// Engine resolves stable variants for (test, visitor) pairs and reports
// impression/conversion events to an analytics sink. Both collaborators
// are injected; either may be nil, in which case the corresponding
// behavior (stickiness, reporting) is skipped.
type Engine struct {
	store   ports.AssignmentStore
	sink    ports.AnalyticsSink
	metrics ports.MetricsExporter
	logger  *slog.Logger
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Engine)

// WithRand sets the random source used for weighted draws. Tests inject
// a seeded source for deterministic selection.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m ports.MetricsExporter) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the timestamp source for assignments and events.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(store ports.AssignmentStore, sink ports.AnalyticsSink, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		sink:   sink,
		logger: slog.Default(),
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve returns the variant the given visitor should see for the test.
//
// When persist is true an existing assignment is honored as long as its
// variant still exists in the test; a stale assignment is overwritten
// with a fresh draw. Store failures degrade to non-persistent behavior
// for this call: losing stickiness is cosmetic, aborting the caller's
// render path is not.
func (e *Engine) Resolve(ctx context.Context, test *domain.Test, visitorID string, persist bool) (*domain.Variant, error) {
	if err := test.Validate(); err != nil {
		return nil, err
	}

	if persist && e.store != nil {
		prior, err := e.store.Get(ctx, test.ID, visitorID)
		if err != nil {
			e.logger.Warn("assignment lookup failed, resolving without persistence",
				"test_id", test.ID, "error", err)
		} else if prior != nil {
			if v := test.VariantByID(prior.VariantID); v != nil {
				e.recordAssignment(ctx, test.ID, v.ID, true)
				return v, nil
			}
			// Stored variant no longer exists in the configuration;
			// fall through and overwrite the stale record.
		}
	}

	selected := e.pick(test)

	if persist && e.store != nil {
		assignment := &domain.Assignment{
			TestID:     test.ID,
			VisitorID:  visitorID,
			VariantID:  selected.ID,
			AssignedAt: e.now().UTC(),
		}
		if err := e.store.Put(ctx, assignment); err != nil {
			e.logger.Warn("assignment write failed, result not persisted",
				"test_id", test.ID, "variant_id", selected.ID, "error", err)
		}
	}

	e.recordAssignment(ctx, test.ID, selected.ID, false)
	return selected, nil
}

// pick performs the weighted draw: r uniform in [0, totalWeight),
// variants scanned in declaration order, first variant whose cumulative
// weight exceeds r wins. Zero-weight variants are never selected.
func (e *Engine) pick(test *domain.Test) *domain.Variant {
	total := test.TotalWeight()

	e.mu.Lock()
	r := e.rng.Float64() * total
	e.mu.Unlock()

	var cumulative float64
	for i := range test.Variants {
		cumulative += test.Variants[i].Weight
		if cumulative > r {
			return &test.Variants[i]
		}
	}
	// Floating point accumulation can leave r marginally above the
	// final cumulative sum; the last positive-weight variant wins.
	for i := len(test.Variants) - 1; i >= 0; i-- {
		if test.Variants[i].Weight > 0 {
			return &test.Variants[i]
		}
	}
	return &test.Variants[len(test.Variants)-1]
}

// Report constructs a tracking event and forwards it to the analytics
// sink. Reporting is fire-and-forget: sink failures and panics are
// logged and swallowed, and an absent sink is a no-op.
func (e *Engine) Report(ctx context.Context, kind domain.EventKind, testID, variantID, visitorID string, properties map[string]string) {
	if !kind.Valid() {
		e.logger.Warn("dropping tracking event with unknown kind", "kind", string(kind))
		return
	}

	event := &domain.TrackingEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		TestID:     testID,
		VariantID:  variantID,
		VisitorID:  visitorID,
		Timestamp:  e.now().UTC(),
		Properties: properties,
	}

	if e.metrics != nil {
		e.metrics.RecordEvent(ctx, event)
	}

	if e.sink == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("analytics sink panicked", "event", event.EventName(), "panic", r)
		}
	}()

	props := map[string]string{
		"event_id":   event.ID,
		"test_id":    testID,
		"variant_id": variantID,
		"timestamp":  event.Timestamp.Format(time.RFC3339),
	}
	if visitorID != "" {
		props["visitor_id"] = visitorID
	}
	for k, v := range properties {
		props[k] = v
	}

	if err := e.sink.Capture(ctx, event.EventName(), props); err != nil {
		e.logger.Warn("analytics capture failed", "event", event.EventName(), "error", err)
	}
}

// ReportImpression records that a variant was shown to a visitor.
func (e *Engine) ReportImpression(ctx context.Context, testID, variantID, visitorID string, properties map[string]string) {
	e.Report(ctx, domain.EventImpression, testID, variantID, visitorID, properties)
}

// ReportConversion records that a visitor completed the target action.
func (e *Engine) ReportConversion(ctx context.Context, testID, variantID, visitorID string, properties map[string]string) {
	e.Report(ctx, domain.EventConversion, testID, variantID, visitorID, properties)
}

func (e *Engine) recordAssignment(ctx context.Context, testID, variantID string, sticky bool) {
	if e.metrics != nil {
		e.metrics.RecordAssignment(ctx, testID, variantID, sticky)
	}
}
