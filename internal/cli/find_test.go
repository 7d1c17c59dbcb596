package cli

import (
	"context"
	"testing"
	"time"

	"github.com/pm33/abtest/internal/adapters/turso"
	"github.com/pm33/abtest/internal/domain"
)

func TestFindTest(t *testing.T) {
	db := testDB(t)
	repo := turso.NewTestRepository(db)
	ctx := context.Background()

	test := &domain.Test{
		ID:   "test-find",
		Name: "checkout-button",
		Variants: []domain.Variant{
			{ID: "control", Weight: 1},
			{ID: "green", Weight: 1},
		},
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, test); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Run("by id", func(t *testing.T) {
		got, err := findTest(ctx, repo, "test-find")
		if err != nil {
			t.Fatalf("findTest by id failed: %v", err)
		}
		if got.Name != "checkout-button" {
			t.Errorf("got name %q, want checkout-button", got.Name)
		}
	})

	t.Run("by name", func(t *testing.T) {
		got, err := findTest(ctx, repo, "checkout-button")
		if err != nil {
			t.Fatalf("findTest by name failed: %v", err)
		}
		if got.ID != "test-find" {
			t.Errorf("got id %q, want test-find", got.ID)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := findTest(ctx, repo, "nope"); err == nil {
			t.Fatal("findTest for missing test succeeded, want error")
		}
	})
}
