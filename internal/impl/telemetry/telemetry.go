package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"

	instrumentationName = "github.com/drujensen/researchagent"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// Init installs the global tracer provider for exporter. With "none" the
// global no-op provider stays in place.
func Init(ctx context.Context, exporter, endpoint, version string, logger *zap.Logger) (ShutdownFunc, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)

	switch exporter {
	case "", ExporterNone:
		logger.Debug("Tracing disabled")
		return func(context.Context) error { return nil }, nil
	case ExporterStdout:
		// stdout belongs to the terminal UI
		exp, err = newWriterExporter(os.Stderr)
	case ExporterOTLP:
		var opts []otlptracehttp.Option
		if endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
		}
		exp, err = otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown trace exporter: %s", exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s trace exporter: %w", exporter, err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "researchagent"),
			attribute.String("service.version", version),
		)),
	)
	otel.SetTracerProvider(tp)
	logger.Info("Tracing enabled", zap.String("exporter", exporter), zap.String("endpoint", endpoint))

	return func(ctx context.Context) error {
		if err := tp.ForceFlush(ctx); err != nil {
			logger.Warn("Failed to flush spans", zap.Error(err))
		}
		return tp.Shutdown(ctx)
	}, nil
}

func newWriterExporter(w io.Writer) (sdktrace.SpanExporter, error) {
	return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
}

// Tracer returns the application tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// RecordError marks span as failed with err.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
