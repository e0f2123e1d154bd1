// Package trace wires OpenTelemetry tracing for detection and speech calls.
package trace

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of every span this module records.
const TracerName = "github.com/ayusman/signscribe"

// Exporter types.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

var (
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	mu             sync.RWMutex
)

// Config holds the configuration for tracing.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// ExporterType is "stdout", "otlp", or "none".
	ExporterType string
	// OTLPEndpoint is the collector address for the otlp exporter, e.g. "localhost:4317".
	OTLPEndpoint string
	// SamplingRate is the fraction of traces sampled (0.0 to 1.0).
	SamplingRate float64
}

// DefaultConfig returns a configuration that records nothing.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "signscribe",
		ServiceVersion: "0.1.0",
		ExporterType:   ExporterNone,
		OTLPEndpoint:   "localhost:4317",
		SamplingRate:   1.0,
	}
}

// Initialize sets up the global tracer provider.
func Initialize(ctx context.Context, cfg *Config) error {
	mu.Lock()
	defer mu.Unlock()

	if tracerProvider != nil {
		return fmt.Errorf("tracer provider already initialized")
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.ExporterType {
	case ExporterStdout:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create stdout exporter: %w", err)
		}
	case ExporterOTLP:
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		exporter, err = otlptrace.New(ctx, client)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
	case ExporterNone, "":
		exporter = &noopExporter{}
	default:
		return fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))),
	)
	otel.SetTracerProvider(tracerProvider)
	tracer = tracerProvider.Tracer(TracerName)

	log.Printf("Tracing initialized with exporter: %s", cfg.ExporterType)
	return nil
}

// Shutdown flushes and stops the tracer provider. It is a no-op when tracing
// was never initialized.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	if tracerProvider == nil {
		return nil
	}

	if err := tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}

	tracerProvider = nil
	tracer = nil
	return nil
}

// GetTracer returns the module tracer, or a no-op tracer before Initialize.
func GetTracer() trace.Tracer {
	mu.RLock()
	defer mu.RUnlock()

	if tracer == nil {
		return otel.Tracer(TracerName)
	}
	return tracer
}

// StartSpan starts a span named spanName.
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError marks span as failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

type noopExporter struct{}

func (e *noopExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	return nil
}

func (e *noopExporter) Shutdown(ctx context.Context) error {
	return nil
}
