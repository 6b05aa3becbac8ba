// Package observability wires structured logging, distributed tracing,
// and metrics for the analysis service.
//
// Logging is log/slog with text or JSON handlers built from the service
// configuration. Tracing and metrics are OpenTelemetry: spans export over
// OTLP gRPC, metrics export through either a Prometheus scrape endpoint
// or an OTLP push. The package also provides the OpenTelemetry-backed
// recorder for event bus activity.
package observability
