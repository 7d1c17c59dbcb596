package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/pm33/abtest/internal/domain"
)

const (
	serviceName    = "abtest"
	serviceVersion = "1.0.0"
)

// Config holds OTEL exporter configuration.
type Config struct {
	Enabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	Endpoint string `envconfig:"OTEL_ENDPOINT"`
	Insecure bool   `envconfig:"OTEL_INSECURE" default:"true"`
}

// Exporter publishes assignment and tracking counters to an OTEL
// Collector.
type Exporter struct {
	provider         *sdkmetric.MeterProvider
	meter            metric.Meter
	assignmentsTotal metric.Int64Counter
	impressionsTotal metric.Int64Counter
	conversionsTotal metric.Int64Counter
}

// NewExporter creates a new OTEL metrics exporter.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	assignmentsTotal, err := meter.Int64Counter(
		"abtest_assignments_total",
		metric.WithDescription("Total variant assignments resolved"),
		metric.WithUnit("{assignment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating assignments counter: %w", err)
	}

	impressionsTotal, err := meter.Int64Counter(
		"abtest_impressions_total",
		metric.WithDescription("Total impression events reported"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating impressions counter: %w", err)
	}

	conversionsTotal, err := meter.Int64Counter(
		"abtest_conversions_total",
		metric.WithDescription("Total conversion events reported"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating conversions counter: %w", err)
	}

	return &Exporter{
		provider:         provider,
		meter:            meter,
		assignmentsTotal: assignmentsTotal,
		impressionsTotal: impressionsTotal,
		conversionsTotal: conversionsTotal,
	}, nil
}

// RecordAssignment counts one resolved assignment. Sticky marks
// resolutions satisfied from a persisted record rather than a draw.
func (e *Exporter) RecordAssignment(ctx context.Context, testID, variantID string, sticky bool) {
	e.assignmentsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("test_id", testID),
		attribute.String("variant_id", variantID),
		attribute.Bool("sticky", sticky),
	))
}

// RecordEvent counts one tracking event.
func (e *Exporter) RecordEvent(ctx context.Context, event *domain.TrackingEvent) {
	opt := metric.WithAttributes(
		attribute.String("test_id", event.TestID),
		attribute.String("variant_id", event.VariantID),
	)
	switch event.Kind {
	case domain.EventImpression:
		e.impressionsTotal.Add(ctx, 1, opt)
	case domain.EventConversion:
		e.conversionsTotal.Add(ctx, 1, opt)
	}
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
