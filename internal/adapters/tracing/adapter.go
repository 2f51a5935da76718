package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/loomery/loom/internal/prompt"
)

// ModuleTracer implements prompt.Tracer over OpenTelemetry, giving each
// module invocation its own span.
type ModuleTracer struct {
	tracer trace.Tracer
}

// NewModuleTracer creates a tracer scoped to the given instrumentation name
func NewModuleTracer(name string) *ModuleTracer {
	return &ModuleTracer{tracer: otel.Tracer(name)}
}

// StartSpan implements prompt.Tracer
func (t *ModuleTracer) StartSpan(ctx context.Context, name string) (context.Context, prompt.Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() {
	s.span.End()
}

func (s *otelSpan) SetError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *otelSpan) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	}
}
