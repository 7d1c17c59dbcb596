package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pm33/abtest/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type resolveRequest struct {
	TestID    string `json:"test_id"`
	VisitorID string `json:"visitor_id"`
	Persist   *bool  `json:"persist,omitempty"`
}

type resolveResponse struct {
	TestID    string `json:"test_id"`
	VariantID string `json:"variant_id"`
	Payload   string `json:"payload,omitempty"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TestID == "" || req.VisitorID == "" {
		s.respondError(w, http.StatusBadRequest, "test_id and visitor_id are required")
		return
	}

	test, err := s.deps.Tests.GetByID(r.Context(), req.TestID)
	if err != nil {
		s.logger.Error("failed to load test", "test_id", req.TestID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if test == nil {
		s.respondError(w, http.StatusNotFound, "test not found")
		return
	}

	persist := req.Persist == nil || *req.Persist
	variant, err := s.deps.Engine.Resolve(r.Context(), test, req.VisitorID, persist)
	if err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			s.respondError(w, http.StatusUnprocessableEntity, cfgErr.Error())
			return
		}
		s.logger.Error("failed to resolve variant", "test_id", req.TestID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.respondJSON(w, http.StatusOK, resolveResponse{
		TestID:    test.ID,
		VariantID: variant.ID,
		Payload:   variant.Payload,
	})
}

type eventRequest struct {
	Kind       string            `json:"kind"`
	TestID     string            `json:"test_id"`
	VariantID  string            `json:"variant_id"`
	VisitorID  string            `json:"visitor_id"`
	Properties map[string]string `json:"properties,omitempty"`
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	kind := domain.EventKind(req.Kind)
	if !kind.Valid() {
		s.respondError(w, http.StatusBadRequest, "kind must be impression or conversion")
		return
	}
	if req.TestID == "" || req.VariantID == "" || req.VisitorID == "" {
		s.respondError(w, http.StatusBadRequest, "test_id, variant_id and visitor_id are required")
		return
	}

	_, err := s.deps.Analytics.RecordEvent(r.Context(), kind, req.TestID, req.VariantID, req.VisitorID, req.Properties)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			s.respondError(w, http.StatusNotFound, "test not found")
			return
		}
		// Storage trouble must not bubble up to the tracking caller.
		s.logger.Warn("failed to persist event", "test_id", req.TestID, "kind", req.Kind, "error", err)
	}

	s.deps.Engine.Report(r.Context(), kind, req.TestID, req.VariantID, req.VisitorID, req.Properties)

	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type variantPayload struct {
	ID      string  `json:"id"`
	Weight  float64 `json:"weight"`
	Payload string  `json:"payload,omitempty"`
}

type testPayload struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Variants    []variantPayload `json:"variants"`
	IsActive    bool             `json:"is_active"`
	CreatedAt   string           `json:"created_at"`
}

func toTestPayload(t *domain.Test) testPayload {
	p := testPayload{
		ID:        t.ID,
		Name:      t.Name,
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
		Variants:  make([]variantPayload, 0, len(t.Variants)),
	}
	if t.Description != nil {
		p.Description = *t.Description
	}
	for _, v := range t.Variants {
		p.Variants = append(p.Variants, variantPayload{ID: v.ID, Weight: v.Weight, Payload: v.Payload})
	}
	return p
}

type createTestRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Variants    []variantPayload `json:"variants"`
	IsActive    *bool            `json:"is_active,omitempty"`
}

func (s *Server) handleCreateTest(w http.ResponseWriter, r *http.Request) {
	var req createTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	test := &domain.Test{
		ID:        uuid.New().String(),
		Name:      req.Name,
		IsActive:  req.IsActive == nil || *req.IsActive,
		CreatedAt: time.Now().UTC(),
	}
	if req.Description != "" {
		test.Description = &req.Description
	}
	for _, v := range req.Variants {
		test.Variants = append(test.Variants, domain.Variant{ID: v.ID, Weight: v.Weight, Payload: v.Payload})
	}

	if err := test.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if existing, err := s.deps.Tests.GetByName(r.Context(), req.Name); err == nil && existing != nil {
		s.respondError(w, http.StatusConflict, "a test with that name already exists")
		return
	}

	if err := s.deps.Tests.Create(r.Context(), test); err != nil {
		s.logger.Error("failed to create test", "name", req.Name, "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.respondJSON(w, http.StatusCreated, toTestPayload(test))
}

func (s *Server) handleListTests(w http.ResponseWriter, r *http.Request) {
	tests, err := s.deps.Tests.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list tests", "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	payload := make([]testPayload, 0, len(tests))
	for _, t := range tests {
		payload = append(payload, toTestPayload(t))
	}
	s.respondJSON(w, http.StatusOK, payload)
}

func (s *Server) handleGetTest(w http.ResponseWriter, r *http.Request) {
	test, err := s.deps.Tests.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.logger.Error("failed to load test", "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if test == nil {
		s.respondError(w, http.StatusNotFound, "test not found")
		return
	}
	s.respondJSON(w, http.StatusOK, toTestPayload(test))
}

func (s *Server) handleDeleteTest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	test, err := s.deps.Tests.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to load test", "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if test == nil {
		s.respondError(w, http.StatusNotFound, "test not found")
		return
	}

	if err := s.deps.Tests.Delete(r.Context(), id); err != nil {
		s.logger.Error("failed to delete test", "test_id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if s.deps.Assignments != nil {
		if _, err := s.deps.Assignments.DeleteByTest(r.Context(), id); err != nil {
			s.logger.Warn("failed to delete assignments", "test_id", id, "error", err)
		}
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

type statsResponse struct {
	TestID         string         `json:"test_id"`
	TestName       string         `json:"test_name"`
	Variants       []variantStats `json:"variants"`
	Winner         *string        `json:"winner,omitempty"`
	Confidence     float64        `json:"confidence,omitempty"`
	Recommendation string         `json:"recommendation,omitempty"`
}

type variantStats struct {
	VariantID      string  `json:"variant_id"`
	Impressions    int64   `json:"impressions"`
	Conversions    int64   `json:"conversions"`
	UniqueVisitors int64   `json:"unique_visitors"`
	ConversionRate float64 `json:"conversion_rate"`
}

func (s *Server) handleTestStats(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Analytics.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			s.respondError(w, http.StatusNotFound, "test not found")
			return
		}
		s.logger.Error("failed to build report", "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := statsResponse{
		TestID:         report.TestID,
		TestName:       report.TestName,
		Confidence:     report.Confidence,
		Recommendation: report.Recommendation,
		Variants:       make([]variantStats, 0, len(report.Variants)),
	}
	if report.Winner != nil {
		resp.Winner = &report.Winner.VariantID
	}
	for i := range report.Variants {
		vs := &report.Variants[i]
		resp.Variants = append(resp.Variants, variantStats{
			VariantID:      vs.VariantID,
			Impressions:    vs.Impressions,
			Conversions:    vs.Conversions,
			UniqueVisitors: vs.UniqueVisitors,
			ConversionRate: vs.ConversionRate(),
		})
	}

	s.respondJSON(w, http.StatusOK, resp)
}
