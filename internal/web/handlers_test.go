package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/pm33/abtest/internal/adapters/memory"
	"github.com/pm33/abtest/internal/adapters/turso"
	"github.com/pm33/abtest/internal/analytics"
	"github.com/pm33/abtest/internal/domain"
	"github.com/pm33/abtest/internal/engine"
	"github.com/pm33/abtest/internal/migrate"
)

var dbCounter atomic.Int64

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:webtest%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}
	if err := migrate.RunAll(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type testEnv struct {
	server *Server
	tests  *turso.TestRepository
	events *turso.EventRepository
	sink   *memory.Sink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := turso.NewTestRepository(db)
	events := turso.NewEventRepository(db)
	assignments := turso.NewAssignmentRepository(db)
	sink := memory.NewSink()

	eng := engine.New(assignments, sink, engine.WithLogger(logger))
	svc := analytics.NewService(tests, events, logger)

	return &testEnv{
		server: NewServer(Deps{Tests: tests, Assignments: assignments, Events: events, Engine: eng, Analytics: svc}, 0, logger),
		tests:  tests,
		events: events,
		sink:   sink,
	}
}

func (env *testEnv) seedTest(t *testing.T, id string) *domain.Test {
	t.Helper()
	test := &domain.Test{
		ID:   id,
		Name: "name-" + id,
		Variants: []domain.Variant{
			{ID: "control", Weight: 1},
			{ID: "green", Weight: 1, Payload: `{"color":"green"}`},
		},
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := env.tests.Create(context.Background(), test); err != nil {
		t.Fatalf("seed test failed: %v", err)
	}
	return test
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
}

func TestHandleResolve(t *testing.T) {
	env := newTestEnv(t)
	test := env.seedTest(t, "resolve-test")

	t.Run("sticky across calls", func(t *testing.T) {
		first := env.do(t, http.MethodPost, "/api/resolve",
			resolveRequest{TestID: test.ID, VisitorID: "visitor-1"})
		if first.Code != http.StatusOK {
			t.Fatalf("got status %d, want 200: %s", first.Code, first.Body.String())
		}
		var got resolveResponse
		if err := json.Unmarshal(first.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if got.VariantID != "control" && got.VariantID != "green" {
			t.Fatalf("unexpected variant %q", got.VariantID)
		}

		for i := 0; i < 5; i++ {
			rec := env.do(t, http.MethodPost, "/api/resolve",
				resolveRequest{TestID: test.ID, VisitorID: "visitor-1"})
			var again resolveResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &again); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if again.VariantID != got.VariantID {
				t.Fatalf("assignment not sticky: got %q then %q", got.VariantID, again.VariantID)
			}
		}
	})

	t.Run("unknown test", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/resolve",
			resolveRequest{TestID: "nope", VisitorID: "visitor-1"})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("got status %d, want 404", rec.Code)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/resolve", resolveRequest{TestID: test.ID})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, want 400", rec.Code)
		}
	})
}

func TestHandleResolveInvalidConfig(t *testing.T) {
	env := newTestEnv(t)

	test := &domain.Test{
		ID:        "zero-weight",
		Name:      "zero-weight",
		Variants:  []domain.Variant{{ID: "a", Weight: 0}, {ID: "b", Weight: 0}},
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := env.tests.Create(context.Background(), test); err != nil {
		t.Fatalf("seed test failed: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/api/resolve",
		resolveRequest{TestID: test.ID, VisitorID: "visitor-1"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got status %d, want 422: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleEvent(t *testing.T) {
	env := newTestEnv(t)
	test := env.seedTest(t, "event-test")

	t.Run("accepted and persisted", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/events", eventRequest{
			Kind:       "conversion",
			TestID:     test.ID,
			VariantID:  "green",
			VisitorID:  "visitor-1",
			Properties: map[string]string{"plan": "pro"},
		})
		if rec.Code != http.StatusAccepted {
			t.Fatalf("got status %d, want 202: %s", rec.Code, rec.Body.String())
		}

		events, err := env.events.ListByTest(context.Background(), test.ID, 10)
		if err != nil {
			t.Fatalf("list events: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		if events[0].Kind != domain.EventConversion || events[0].Properties["plan"] != "pro" {
			t.Errorf("stored event mismatch: %+v", events[0])
		}

		captured := env.sink.Events()
		if len(captured) != 1 || captured[0].Name != "ab_conversion" {
			t.Errorf("sink capture mismatch: %+v", captured)
		}
	})

	t.Run("bad kind", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/events", eventRequest{
			Kind: "click", TestID: test.ID, VariantID: "green", VisitorID: "v",
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, want 400", rec.Code)
		}
	})

	t.Run("unknown test", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/events", eventRequest{
			Kind: "impression", TestID: "nope", VariantID: "green", VisitorID: "v",
		})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("got status %d, want 404", rec.Code)
		}
	})
}

func TestHandleTestCRUD(t *testing.T) {
	env := newTestEnv(t)

	var created testPayload
	t.Run("create", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/tests/", createTestRequest{
			Name:        "checkout-button",
			Description: "CTA color test",
			Variants: []variantPayload{
				{ID: "control", Weight: 3},
				{ID: "green", Weight: 1},
			},
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("got status %d, want 201: %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if created.ID == "" || len(created.Variants) != 2 {
			t.Fatalf("unexpected created payload: %+v", created)
		}
	})

	t.Run("create rejects bad weights", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/tests/", createTestRequest{
			Name:     "broken",
			Variants: []variantPayload{{ID: "a", Weight: -1}},
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, want 400", rec.Code)
		}
	})

	t.Run("get", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/tests/"+created.ID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, want 200", rec.Code)
		}
		var got testPayload
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if got.Name != "checkout-button" || got.Description != "CTA color test" {
			t.Errorf("unexpected payload: %+v", got)
		}
	})

	t.Run("list", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/tests/", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, want 200", rec.Code)
		}
		var got []testPayload
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d tests, want 1", len(got))
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/tests/"+created.ID, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("got status %d, want 204", rec.Code)
		}
		rec = env.do(t, http.MethodGet, "/api/tests/"+created.ID, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("got status %d after delete, want 404", rec.Code)
		}
	})
}

func TestHandleTestStats(t *testing.T) {
	env := newTestEnv(t)
	test := env.seedTest(t, "stats-test")

	for i := 0; i < 4; i++ {
		visitor := fmt.Sprintf("visitor-%d", i)
		rec := env.do(t, http.MethodPost, "/api/events", eventRequest{
			Kind: "impression", TestID: test.ID, VariantID: "green", VisitorID: visitor,
		})
		if rec.Code != http.StatusAccepted {
			t.Fatalf("impression got status %d", rec.Code)
		}
	}
	rec := env.do(t, http.MethodPost, "/api/events", eventRequest{
		Kind: "conversion", TestID: test.ID, VariantID: "green", VisitorID: "visitor-0",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("conversion got status %d", rec.Code)
	}

	statsRec := env.do(t, http.MethodGet, "/api/tests/"+test.ID+"/stats", nil)
	if statsRec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", statsRec.Code, statsRec.Body.String())
	}
	var got statsResponse
	if err := json.Unmarshal(statsRec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	var green *variantStats
	for i := range got.Variants {
		if got.Variants[i].VariantID == "green" {
			green = &got.Variants[i]
		}
	}
	if green == nil {
		t.Fatalf("green variant missing from stats: %+v", got)
	}
	if green.Impressions != 4 || green.Conversions != 1 {
		t.Errorf("green stats = %+v, want 4 impressions and 1 conversion", green)
	}
	if green.ConversionRate != 0.25 {
		t.Errorf("conversion rate = %v, want 0.25", green.ConversionRate)
	}
}
