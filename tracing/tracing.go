// ABOUTME: OpenTelemetry setup for pipeline tracing
// ABOUTME: Exports spans over OTLP/HTTP when an endpoint is set, else to stderr
package tracing

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/harperreed/introengine/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Config struct {
	Enabled     bool
	ServiceName string
	Version     string
	// Endpoint is an OTLP/HTTP host:port. Empty writes spans to Writer.
	Endpoint string
	Insecure bool
	// SampleRatio is the fraction of root spans kept; zero keeps all.
	SampleRatio float64
	// Writer receives spans when no endpoint is set. Defaults to stderr so
	// stdout stays free for the MCP stdio transport.
	Writer io.Writer
}

// Init installs the global tracer provider. The returned shutdown flushes
// pending spans; it is a no-op when tracing is disabled or setup failed.
func Init(ctx context.Context, log *logger.Logger, cfg Config) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop
	}
	if log == nil {
		log = logger.NewNop()
	}
	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = "introengine"
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.Version),
	))
	if err != nil {
		log.Warn("otel resource init failed (continuing)", "error", err)
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		log.Warn("otel exporter init failed, tracing disabled", "error", err)
		return noop
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clampRatio(cfg.SampleRatio)))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info("otel tracing initialized", "service", cfg.ServiceName, "endpoint", cfg.Endpoint)
	return tp.Shutdown
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	if cfg.Endpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	return stdouttrace.New(stdouttrace.WithWriter(w))
}

func clampRatio(r float64) float64 {
	switch {
	case r <= 0:
		return 1
	case r > 1:
		return 1
	default:
		return r
	}
}
