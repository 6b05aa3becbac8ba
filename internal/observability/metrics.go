package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/williamstus/AAR-Reporting-sub000/internal/config"
	"github.com/williamstus/AAR-Reporting-sub000/internal/events"
)

// Metric names for analysis service observability.
const (
	MetricEventsPublished   = "aar.events.published"
	MetricEventsDropped     = "aar.events.dropped"
	MetricHandlerErrors     = "aar.events.handler_errors"
	MetricHandlerPanics     = "aar.events.handler_panics"
	MetricSubscriberChanges = "aar.events.subscribers"
)

// InitMetrics initializes a meter provider from the metrics
// configuration. "prometheus" registers an in-process exporter scraped
// via ServeMetrics; "otlp" pushes to the configured collector endpoint.
// Disabled metrics yield a no-op provider.
func InitMetrics(ctx context.Context, cfg config.MetricsConfig) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		return noop.NewMeterProvider(), nil
	}

	switch strings.ToLower(cfg.Provider) {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)), nil

	case "otlp":
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp metric exporter: %w", err)
		}
		return sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		), nil

	default:
		return nil, fmt.Errorf("unsupported metrics provider: %s", cfg.Provider)
	}
}

// ServeMetrics starts an HTTP server exposing the Prometheus scrape
// endpoint at /metrics. The server shuts down when ctx is cancelled.
func ServeMetrics(ctx context.Context, port int, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics endpoint failed", "error", err)
	}
}

// BusMetricsRecorder implements events.MetricsRecorder on OpenTelemetry
// counter instruments. Instrument creation happens once at construction;
// recording is lock-free.
type BusMetricsRecorder struct {
	published   metric.Int64Counter
	dropped     metric.Int64Counter
	errors      metric.Int64Counter
	panics      metric.Int64Counter
	subscribers metric.Int64UpDownCounter
}

// Compile-time check against the bus interface.
var _ events.MetricsRecorder = (*BusMetricsRecorder)(nil)

// NewBusMetricsRecorder creates a recorder on the given meter.
func NewBusMetricsRecorder(meter metric.Meter) (*BusMetricsRecorder, error) {
	published, err := meter.Int64Counter(MetricEventsPublished,
		metric.WithDescription("Events accepted for delivery"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", MetricEventsPublished, err)
	}
	dropped, err := meter.Int64Counter(MetricEventsDropped,
		metric.WithDescription("Events dropped under backpressure or shutdown"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", MetricEventsDropped, err)
	}
	handlerErrors, err := meter.Int64Counter(MetricHandlerErrors,
		metric.WithDescription("Handler invocations returning an error"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", MetricHandlerErrors, err)
	}
	handlerPanics, err := meter.Int64Counter(MetricHandlerPanics,
		metric.WithDescription("Handler invocations recovered from panic"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", MetricHandlerPanics, err)
	}
	subscribers, err := meter.Int64UpDownCounter(MetricSubscriberChanges,
		metric.WithDescription("Currently registered handlers"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", MetricSubscriberChanges, err)
	}

	return &BusMetricsRecorder{
		published:   published,
		dropped:     dropped,
		errors:      handlerErrors,
		panics:      handlerPanics,
		subscribers: subscribers,
	}, nil
}

func (r *BusMetricsRecorder) RecordEventPublished(eventType events.EventType) {
	r.published.Add(context.Background(), 1, metric.WithAttributes(eventTypeAttr(eventType)))
}

func (r *BusMetricsRecorder) RecordEventDropped(eventType events.EventType) {
	r.dropped.Add(context.Background(), 1, metric.WithAttributes(eventTypeAttr(eventType)))
}

func (r *BusMetricsRecorder) RecordHandlerError(eventType events.EventType) {
	r.errors.Add(context.Background(), 1, metric.WithAttributes(eventTypeAttr(eventType)))
}

func (r *BusMetricsRecorder) RecordHandlerPanic(eventType events.EventType) {
	r.panics.Add(context.Background(), 1, metric.WithAttributes(eventTypeAttr(eventType)))
}

func (r *BusMetricsRecorder) RecordSubscriberAdded() {
	r.subscribers.Add(context.Background(), 1)
}

func (r *BusMetricsRecorder) RecordSubscriberRemoved() {
	r.subscribers.Add(context.Background(), -1)
}

func eventTypeAttr(eventType events.EventType) attribute.KeyValue {
	return attribute.String("event.type", string(eventType))
}
