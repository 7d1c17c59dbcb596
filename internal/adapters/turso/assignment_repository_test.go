package turso_test

import (
	"context"
	"testing"
	"time"

	"github.com/pm33/abtest/internal/adapters/turso"
	"github.com/pm33/abtest/internal/domain"
)

func TestAssignmentRepositoryGetAbsent(t *testing.T) {
	db := testDB(t)
	repo := turso.NewAssignmentRepository(db)

	got, err := repo.Get(context.Background(), "t1", "v1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("Get on empty store = %v, want nil", got)
	}
}

func TestAssignmentRepositoryPutGet(t *testing.T) {
	db := testDB(t)
	repo := turso.NewAssignmentRepository(db)
	ctx := context.Background()

	assigned := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := repo.Put(ctx, &domain.Assignment{
		TestID: "t1", VisitorID: "v1", VariantID: "a", AssignedAt: assigned,
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := repo.Get(ctx, "t1", "v1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil after Put")
	}
	if got.VariantID != "a" {
		t.Errorf("VariantID = %q, want a", got.VariantID)
	}
	if !got.AssignedAt.Equal(assigned) {
		t.Errorf("AssignedAt = %v, want %v", got.AssignedAt, assigned)
	}

	// Different visitor for the same test is independent.
	other, err := repo.Get(ctx, "t1", "v2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if other != nil {
		t.Errorf("Get(t1, v2) = %v, want nil", other)
	}
}

func TestAssignmentRepositoryUpsert(t *testing.T) {
	db := testDB(t)
	repo := turso.NewAssignmentRepository(db)
	ctx := context.Background()

	put := func(variantID string) {
		t.Helper()
		err := repo.Put(ctx, &domain.Assignment{
			TestID: "t1", VisitorID: "v1", VariantID: variantID, AssignedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("Put(%s) failed: %v", variantID, err)
		}
	}

	put("a")
	put("b")

	got, err := repo.Get(ctx, "t1", "v1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.VariantID != "b" {
		t.Errorf("VariantID after upsert = %q, want b (last write wins)", got.VariantID)
	}
}

func TestAssignmentRepositoryDeleteByTest(t *testing.T) {
	db := testDB(t)
	repo := turso.NewAssignmentRepository(db)
	ctx := context.Background()

	for _, visitor := range []string{"v1", "v2", "v3"} {
		err := repo.Put(ctx, &domain.Assignment{
			TestID: "t1", VisitorID: visitor, VariantID: "a", AssignedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	err := repo.Put(ctx, &domain.Assignment{
		TestID: "t2", VisitorID: "v1", VariantID: "x", AssignedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	deleted, err := repo.DeleteByTest(ctx, "t1")
	if err != nil {
		t.Fatalf("DeleteByTest failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("DeleteByTest removed %d rows, want 3", deleted)
	}

	remaining, err := repo.Get(ctx, "t2", "v1")
	if err != nil || remaining == nil {
		t.Errorf("assignment for other test should survive: %v, %v", remaining, err)
	}
}
