package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/kelseyhightower/envconfig"

	"github.com/pm33/abtest/internal/adapters/otel"
	"github.com/pm33/abtest/internal/adapters/posthog"
	"github.com/pm33/abtest/internal/adapters/turso"
	"github.com/pm33/abtest/internal/analytics"
	"github.com/pm33/abtest/internal/engine"
	"github.com/pm33/abtest/internal/infrastructure/config"
	"github.com/pm33/abtest/internal/infrastructure/database"
	"github.com/pm33/abtest/internal/ports"
)

// AppContext holds all shared dependencies for CLI commands.
type AppContext struct {
	DB             *sql.DB
	Logger         *slog.Logger
	TestRepo       ports.TestRepository
	AssignmentRepo ports.AssignmentStore
	EventRepo      ports.EventRepository
	Metrics        ports.MetricsExporter
	Engine         *engine.Engine
	Analytics      *analytics.Service
}

// NewAppContext creates an AppContext with all dependencies initialized.
// The PostHog sink and OTEL exporter are optional and skipped when not
// configured in the environment.
func NewAppContext(ctx context.Context) (*AppContext, error) {
	cfg, err := config.LoadCLI()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.New(cfg.Database.URL, cfg.Database.AuthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var sink ports.AnalyticsSink
	var phCfg posthog.Config
	if err := envconfig.Process("", &phCfg); err == nil && phCfg.APIKey != "" {
		s, err := posthog.NewSink(phCfg)
		if err == nil {
			sink = s
		}
	}

	var metrics ports.MetricsExporter = otel.NewNoOpExporter()
	var otelCfg otel.Config
	if err := envconfig.Process("", &otelCfg); err == nil && otelCfg.Enabled {
		exp, err := otel.NewExporter(ctx, otelCfg)
		if err != nil {
			logger.Warn("otel exporter unavailable", "error", err)
		} else {
			metrics = exp
		}
	}

	testRepo := turso.NewTestRepository(db)
	assignmentRepo := turso.NewAssignmentRepository(db)
	eventRepo := turso.NewEventRepository(db)

	return &AppContext{
		DB:             db,
		Logger:         logger,
		TestRepo:       testRepo,
		AssignmentRepo: assignmentRepo,
		EventRepo:      eventRepo,
		Metrics:        metrics,
		Engine: engine.New(assignmentRepo, sink,
			engine.WithLogger(logger),
			engine.WithMetrics(metrics),
		),
		Analytics: analytics.NewService(testRepo, eventRepo, logger),
	}, nil
}

// Close releases all resources held by the AppContext.
func (a *AppContext) Close(ctx context.Context) error {
	if a.Metrics != nil {
		_ = a.Metrics.Close(ctx)
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
