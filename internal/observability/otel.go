// Package observability wires OpenTelemetry tracing for klipprompt.
//
// Tracing is off unless OTEL_ENABLED is set. When enabled, spans are exported
// over OTLP/HTTP if OTEL_EXPORTER_OTLP_ENDPOINT is set and pretty-printed to
// a writer otherwise.
package observability

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/muurk/klipprompt/internal/logging"
)

// TracerName is the instrumentation scope used by the prompt machine.
const TracerName = "github.com/muurk/klipprompt/internal/prompt"

// Config controls tracing setup
type Config struct {
	ServiceName string
	Version     string
	Enabled     bool
	Endpoint    string
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64

	// Writer receives spans when no OTLP endpoint is configured (default stderr)
	Writer io.Writer
}

var (
	otelOnce     sync.Once
	otelShutdown = func(context.Context) error { return nil }
)

// ConfigFromEnv reads the standard OTEL_* variables.
func ConfigFromEnv(serviceName, version string) Config {
	return Config{
		ServiceName: serviceName,
		Version:     version,
		Enabled:     truthy(getEnv("OTEL_ENABLED")),
		Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Headers:     parseHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS")),
		Insecure:    truthy(getEnv("OTEL_EXPORTER_OTLP_INSECURE")),
		SampleRatio: parseRatio(getEnv("OTEL_SAMPLER_RATIO")),
	}
}

// Init installs the global tracer provider once and returns its shutdown
// function. Exporter failures are logged and tracing continues unexported.
func Init(ctx context.Context, cfg Config) func(context.Context) error {
	otelOnce.Do(func() {
		if !cfg.Enabled {
			return
		}
		serviceName := strings.TrimSpace(cfg.ServiceName)
		if serviceName == "" {
			serviceName = "klipprompt"
		}
		res, err := resource.New(
			ctx,
			resource.WithAttributes(
				semconv.ServiceNameKey.String(serviceName),
				semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
				attribute.String("service.component", serviceName),
			),
		)
		if err != nil {
			logging.Warn("otel resource init failed (continuing)", zap.Error(err))
		}

		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
			sdktrace.WithResource(res),
		}
		exporter, err := buildTraceExporter(ctx, cfg)
		if err != nil {
			logging.Warn("otel exporter init failed (continuing)", zap.Error(err))
		}
		if exporter != nil {
			opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
		}

		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otelShutdown = tp.Shutdown

		logging.Info("otel tracing initialized",
			zap.String("service", serviceName),
			zap.String("endpoint", cfg.Endpoint),
		)
	})
	return otelShutdown
}

// Tracer returns the tracer used for prompt processing. Before Init (or with
// tracing disabled) this is the global no-op tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

func buildTraceExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	if cfg.Endpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if cfg.Headers != nil {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		return otlptracehttp.New(ctx, opts...)
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseRatio(raw string) float64 {
	if raw == "" {
		return 1
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 1
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func parseHeaders(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	headers := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" || val == "" {
			continue
		}
		headers[key] = val
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
