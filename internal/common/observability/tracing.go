package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type tracing struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// EnableTracing exports spans to the Jaeger collector at endpoint, e.g.
// http://jaeger:14268/api/traces. An empty endpoint leaves tracing disabled.
func (o *Observability) EnableTracing(endpoint string) error {
	if endpoint == "" {
		return nil
	}
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	if err != nil {
		return err
	}
	return o.enableTracingWith(exporter)
}

func (o *Observability) enableTracingWith(exporter sdktrace.SpanExporter) error {
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", o.serviceName),
		)),
	)
	otel.SetTracerProvider(provider)

	o.tracing = &tracing{
		provider: provider,
		tracer:   provider.Tracer(o.serviceName),
	}
	return nil
}

// Tracer returns the configured tracer, or a no-op tracer when tracing is disabled.
func (o *Observability) Tracer() trace.Tracer {
	if o == nil || o.tracing == nil {
		return noop.NewTracerProvider().Tracer("")
	}
	return o.tracing.tracer
}
