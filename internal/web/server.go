package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pm33/abtest/internal/analytics"
	"github.com/pm33/abtest/internal/engine"
	"github.com/pm33/abtest/internal/ports"
)

// Deps holds the collaborators the HTTP API exposes.
type Deps struct {
	Tests       ports.TestRepository
	Assignments ports.AssignmentStore
	Events      ports.EventRepository
	Engine      *engine.Engine
	Analytics   *analytics.Service
}

// Server is the HTTP API used by sites and apps to resolve variants
// and record tracking events.
type Server struct {
	router *chi.Mux
	deps   Deps
	logger *slog.Logger
	port   int
}

func NewServer(deps Deps, port int, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		logger: logger,
		port:   port,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/resolve", s.handleResolve)
		r.Post("/events", s.handleEvent)

		r.Route("/tests", func(r chi.Router) {
			r.Get("/", s.handleListTests)
			r.Post("/", s.handleCreateTest)
			r.Get("/{id}", s.handleGetTest)
			r.Delete("/{id}", s.handleDeleteTest)
			r.Get("/{id}/stats", s.handleTestStats)
		})
	})
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting server", "addr", server.Addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown error", "error", err)
		}
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
