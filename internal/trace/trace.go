// Package trace starts spans for adapter middleware. The logger owns the SDK
// provider and exporter; spans started here share them.
package trace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "scenario-advisor"

var tracer trace.Tracer

// Init binds to the globally installed provider, or disables spans.
func Init(enabled bool) {
	if !enabled {
		tracer = nil
		return
	}
	tracer = otel.Tracer(instrumentation)
}

// StartSpan returns the current span unchanged when tracing is off.
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}
