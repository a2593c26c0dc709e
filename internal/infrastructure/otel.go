package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "cardpulse"
	ServiceVersion = "v1.0.0"
	MeterName      = "cardpulse"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes tracing and metrics providers.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger: logger,
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))

	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.Handler()

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

		otel.SetMeterProvider(mp)

	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// BusinessMetrics holds all application-specific metrics.
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Aggregation batch metrics
	BatchItemsTotal      metric.Int64Counter
	BatchItemDuration    metric.Float64Histogram
	BatchDuration        metric.Float64Histogram
	ListingsFetchedTotal metric.Int64Counter
	ListingsAdmitted     metric.Int64Counter
	ListingsRejected     metric.Int64Counter
	SourceFetchErrors    metric.Int64Counter

	// Budget suggestion metrics
	SuggestRunsTotal  metric.Int64Counter
	SuggestDuration   metric.Float64Histogram
	SuggestTableCells metric.Int64Counter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	httpRequestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	httpActiveRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	batchItemsTotal, err := meter.Int64Counter(
		"batch_items_total",
		metric.WithDescription("Catalog items processed by aggregation batches"),
	)
	if err != nil {
		return nil, err
	}

	batchItemDuration, err := meter.Float64Histogram(
		"batch_item_duration_seconds",
		metric.WithDescription("Per-item aggregation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	batchDuration, err := meter.Float64Histogram(
		"batch_duration_seconds",
		metric.WithDescription("Full aggregation batch duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	listingsFetchedTotal, err := meter.Int64Counter(
		"listings_fetched_total",
		metric.WithDescription("Raw listings fetched from sources"),
	)
	if err != nil {
		return nil, err
	}

	listingsAdmitted, err := meter.Int64Counter(
		"listings_admitted_total",
		metric.WithDescription("Listings that passed every admission gate"),
	)
	if err != nil {
		return nil, err
	}

	listingsRejected, err := meter.Int64Counter(
		"listings_rejected_total",
		metric.WithDescription("Listings rejected by an admission gate"),
	)
	if err != nil {
		return nil, err
	}

	sourceFetchErrors, err := meter.Int64Counter(
		"source_fetch_errors_total",
		metric.WithDescription("Upstream source fetch failures"),
	)
	if err != nil {
		return nil, err
	}

	suggestRunsTotal, err := meter.Int64Counter(
		"suggest_runs_total",
		metric.WithDescription("Budget suggestion runs"),
	)
	if err != nil {
		return nil, err
	}

	suggestDuration, err := meter.Float64Histogram(
		"suggest_duration_seconds",
		metric.WithDescription("Budget suggestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	suggestTableCells, err := meter.Int64Counter(
		"suggest_table_cells_total",
		metric.WithDescription("Dynamic programming table cells allocated by suggestion runs"),
	)
	if err != nil {
		return nil, err
	}

	return &BusinessMetrics{
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		HTTPActiveRequests:  httpActiveRequests,

		BatchItemsTotal:      batchItemsTotal,
		BatchItemDuration:    batchItemDuration,
		BatchDuration:        batchDuration,
		ListingsFetchedTotal: listingsFetchedTotal,
		ListingsAdmitted:     listingsAdmitted,
		ListingsRejected:     listingsRejected,
		SourceFetchErrors:    sourceFetchErrors,

		SuggestRunsTotal:  suggestRunsTotal,
		SuggestDuration:   suggestDuration,
		SuggestTableCells: suggestTableCells,
	}, nil
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordBatchItemMetrics records the outcome of aggregating one catalog item.
func RecordBatchItemMetrics(ctx context.Context, metrics *BusinessMetrics, itemKey, state string, duration time.Duration) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("item.key", itemKey),
		attribute.String("state", state),
	}

	metrics.BatchItemsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
	metrics.BatchItemDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordListingCounts records the fetched/admitted/rejected tallies for one
// item and source.
func RecordListingCounts(ctx context.Context, metrics *BusinessMetrics, source string, fetched, admitted int) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("source", source))
	metrics.ListingsFetchedTotal.Add(ctx, int64(fetched), attrs)
	metrics.ListingsAdmitted.Add(ctx, int64(admitted), attrs)
	metrics.ListingsRejected.Add(ctx, int64(fetched-admitted), attrs)
}

// RecordSourceFetchError counts an upstream fetch failure.
func RecordSourceFetchError(ctx context.Context, metrics *BusinessMetrics, source string) {
	if metrics == nil {
		return
	}

	metrics.SourceFetchErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordSuggestMetrics records one budget suggestion run.
func RecordSuggestMetrics(ctx context.Context, metrics *BusinessMetrics, candidates, picked int, tableCells int64, duration time.Duration) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Int("candidates", candidates),
		attribute.Int("picked", picked),
	}

	metrics.SuggestRunsTotal.Add(ctx, 1)
	metrics.SuggestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	metrics.SuggestTableCells.Add(ctx, tableCells)
}
