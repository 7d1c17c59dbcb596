package turso_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pm33/abtest/internal/adapters/turso"
	"github.com/pm33/abtest/internal/domain"
)

// TestRepositoriesAgainstLibsqlServer runs the full persistence cycle
// against a real libsql-server instance.
func TestRepositoriesAgainstLibsqlServer(t *testing.T) {
	db := testTursoDB(t)
	ctx := context.Background()

	tests := turso.NewTestRepository(db)
	assignments := turso.NewAssignmentRepository(db)
	events := turso.NewEventRepository(db)

	test := &domain.Test{
		ID:   "pricing_cta",
		Name: "Pricing CTA copy",
		Variants: []domain.Variant{
			{ID: "a", Weight: 0.5, Payload: "cta_trial"},
			{ID: "b", Weight: 0.5, Payload: "cta_demo"},
		},
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := tests.Create(ctx, test); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := assignments.Put(ctx, &domain.Assignment{
		TestID: "pricing_cta", VisitorID: "v1", VariantID: "a", AssignedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	err = events.Create(ctx, &domain.TrackingEvent{
		ID: uuid.NewString(), Kind: domain.EventImpression,
		TestID: "pricing_cta", VariantID: "a", VisitorID: "v1",
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("event Create failed: %v", err)
	}

	got, err := assignments.Get(ctx, "pricing_cta", "v1")
	if err != nil || got == nil || got.VariantID != "a" {
		t.Fatalf("Get = %v, %v, want variant a", got, err)
	}

	stats, err := events.StatsByTest(ctx, "pricing_cta")
	if err != nil {
		t.Fatalf("StatsByTest failed: %v", err)
	}
	if len(stats) != 1 || stats[0].Impressions != 1 {
		t.Errorf("stats = %+v, want one variant with one impression", stats)
	}
}
