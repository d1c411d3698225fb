package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TraceConfig configures the process-local TracerProvider.
type TraceConfig struct {
	// ServiceName names the tracer that Tracer.Start creates spans with.
	// Defaults to "reactor".
	ServiceName string

	// SamplingRate is the fraction of traces recorded, 0.0-1.0. Defaults
	// to 1.0.
	SamplingRate float64
}

// Tracer wraps the process-local TracerProvider built by NewTracer and
// creates spans through Start. The provider is configured with a sampler
// only; no exporter is attached. Because NewTracer also registers the
// provider globally, code that takes its tracer from otel.Tracer (the react
// engine's run span) records into the same provider; without NewTracer that
// code gets the global no-op tracer.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracer builds a TracerProvider with the given sampling rate and
// registers it as the global provider, then returns a Tracer bound to it
// plus a shutdown function the caller must invoke on exit.
func NewTracer(config TraceConfig) (*Tracer, func(context.Context) error) {
	if config.ServiceName == "" {
		config.ServiceName = "reactor"
	}
	if config.SamplingRate <= 0 {
		config.SamplingRate = 1.0
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithSampler(sampler))
	otel.SetTracerProvider(provider)

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(config.ServiceName),
	}, provider.Shutdown
}

// Start creates a span named name and returns the context carrying it.
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError marks span as failed and attaches err.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
