package observability

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/utils"
)

// InitTracing wires the global tracer provider. OTLP over HTTP when an
// endpoint is configured, stdout spans when TRACE_STDOUT=1, otherwise no
// provider is installed and the returned shutdown is a no-op.
func InitTracing(ctx context.Context, log *logger.Logger) (func(context.Context) error, error) {
	obsLog := log.With("component", "tracing")

	endpoint := strings.TrimSpace(utils.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "", log))
	stdoutEnabled := utils.GetEnv("TRACE_STDOUT", "", log) == "1"

	var exporter sdktrace.SpanExporter
	var err error
	switch {
	case endpoint != "":
		exporter, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
		if err != nil {
			return nil, fmt.Errorf("failed to init OTLP exporter: %w", err)
		}
		obsLog.Info("Tracing enabled", "exporter", "otlp", "endpoint", endpoint)
	case stdoutEnabled:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to init stdout exporter: %w", err)
		}
		obsLog.Info("Tracing enabled", "exporter", "stdout")
	default:
		obsLog.Info("Tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("coverbridge-backend"),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
