package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wraps an OpenTelemetry tracer provider exporting spans over
// OTLP/gRPC. Grounded on the teacher's
// backend/internal/observability/telemetry.go NewTelemetryService,
// trimmed to span creation (the attribute-setting helper and the
// request/response size bookkeeping belong to the teacher's HTTP layer,
// which this module does not have).
type Tracing struct {
	tracer trace.Tracer
	tp     *sdktrace.TracerProvider
}

// NewTracing dials otlpEndpoint and installs a global tracer provider
// under serviceName. Call Shutdown to flush and close the exporter.
func NewTracing(ctx context.Context, serviceName, otlpEndpoint string) (*Tracing, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("building resource: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(otlpEndpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Tracing{tracer: tp.Tracer(serviceName), tp: tp}, nil
}

// StartSpan starts a span with the given name. The engine calls it once
// per workflow run ("workflow:"+name) and once per node execution
// ("node:"+type), the node span a child of the workflow span.
func (t *Tracing) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name)
}

// Shutdown flushes pending spans and closes the exporter connection.
func (t *Tracing) Shutdown(ctx context.Context) error {
	return t.tp.Shutdown(ctx)
}
