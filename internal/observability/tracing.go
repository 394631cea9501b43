// Package observability provides OpenTelemetry integration for
// distributed tracing.
//
// Genkit owns the TracerProvider and already instruments model calls,
// retrieval, and flows with spans. This package attaches an OTLP HTTP
// exporter to that provider, so every Genkit span reaches whatever
// collector the endpoint points at (an OTel Collector, a vendor agent
// listening on localhost:4318, etc.). The collector handles
// authentication, buffering, and forwarding.
//
// Tracing is opt-in: leave the endpoint empty and nothing is exported.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config for OTLP trace export.
type Config struct {
	// Endpoint is the OTLP HTTP host:port (default: localhost:4318).
	Endpoint string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// ServiceName is the service name traces are reported under.
	ServiceName string
}

// DefaultEndpoint is the conventional local OTLP HTTP endpoint.
const DefaultEndpoint = "localhost:4318"

// SetupTracing registers an OTLP HTTP exporter with Genkit's
// TracerProvider. Must run before genkit.Init so the provider is ready
// when the first span starts.
//
// Returns a shutdown function that flushes pending spans. An exporter
// construction failure disables tracing rather than failing startup.
func SetupTracing(ctx context.Context, cfg Config, logger *slog.Logger) (shutdown func(context.Context) error, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	// Genkit's TracerProvider reads service identity from the OTEL env
	// vars. SAFETY: os.Setenv is not concurrent-safe, but SetupTracing
	// runs exactly once during startup, before goroutines are spawned.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
