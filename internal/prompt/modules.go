package prompt

import (
	"context"
	"fmt"

	"github.com/XiaoConstantine/dspy-go/pkg/modules"

	"github.com/loomery/loom/internal/domain"
)

// Module is the single capability every unit of work exposes: produce the
// declared outputs from the declared inputs. The set of variants is closed
// and selected at pipeline-assembly time.
type Module interface {
	Invoke(ctx context.Context, inputs map[string]any) (map[string]any, error)
	Signature() Signature
}

// Tracer defines the interface for tracing module execution
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span represents a traced execution span
type Span interface {
	End()
	SetError(err error)
	SetAttribute(key string, value any)
}

// MetricsCollector defines the interface for collecting module metrics
type MetricsCollector interface {
	RecordInvocation(module string, inputs, outputs map[string]any, err error)
}

// hooks carries the cross-cutting concerns shared by model-backed modules
type hooks struct {
	tracer  Tracer
	metrics MetricsCollector
}

// Option configures a model-backed module
type Option func(*hooks)

// WithTracer sets a tracer for the module
func WithTracer(tracer Tracer) Option {
	return func(h *hooks) {
		h.tracer = tracer
	}
}

// WithMetrics sets a metrics collector for the module
func WithMetrics(metrics MetricsCollector) Option {
	return func(h *hooks) {
		h.metrics = metrics
	}
}

// Predict wraps dspy-go's Predict module behind the Module capability
type Predict struct {
	predict *modules.Predict
	sig     Signature
	hooks   hooks
}

// NewPredict creates a Predict module for the signature
func NewPredict(sig Signature, opts ...Option) *Predict {
	p := &Predict{
		predict: modules.NewPredict(sig.Signature),
		sig:     sig,
	}
	for _, opt := range opts {
		opt(&p.hooks)
	}
	return p
}

// Invoke executes the prediction with tracing and metrics
func (p *Predict) Invoke(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	return invokeWithHooks(ctx, "predict."+p.sig.Name, p.hooks, inputs, func(ctx context.Context) (map[string]any, error) {
		return p.predict.Process(ctx, inputs)
	})
}

// Signature returns the module's declared contract
func (p *Predict) Signature() Signature {
	return p.sig
}

// ChainOfThought wraps dspy-go's ChainOfThought module behind the Module
// capability. It behaves like Predict but asks the model to reason before
// answering.
type ChainOfThought struct {
	cot   *modules.ChainOfThought
	sig   Signature
	hooks hooks
}

// NewChainOfThought creates a ChainOfThought module for the signature
func NewChainOfThought(sig Signature, opts ...Option) *ChainOfThought {
	c := &ChainOfThought{
		cot: modules.NewChainOfThought(sig.Signature),
		sig: sig,
	}
	for _, opt := range opts {
		opt(&c.hooks)
	}
	return c
}

// Invoke executes the reasoning prediction with tracing and metrics
func (c *ChainOfThought) Invoke(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	return invokeWithHooks(ctx, "cot."+c.sig.Name, c.hooks, inputs, func(ctx context.Context) (map[string]any, error) {
		return c.cot.Process(ctx, inputs)
	})
}

// Signature returns the module's declared contract
func (c *ChainOfThought) Signature() Signature {
	return c.sig
}

func invokeWithHooks(ctx context.Context, name string, h hooks, inputs map[string]any, fn func(context.Context) (map[string]any, error)) (map[string]any, error) {
	var span Span
	if h.tracer != nil {
		ctx, span = h.tracer.StartSpan(ctx, name)
		defer span.End()
	}

	outputs, err := fn(ctx)

	if h.metrics != nil {
		h.metrics.RecordInvocation(name, inputs, outputs, err)
	}

	if err != nil {
		if span != nil {
			span.SetError(err)
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExecutionFailure, name, err)
	}

	return outputs, nil
}

// TransformFunc derives output fields from inputs without a model call
type TransformFunc func(ctx context.Context, inputs map[string]any) (map[string]any, error)

// Transform is a pure-Go module for deterministic post-processing, such as
// word counts or confidence normalization. It holds no state across calls.
type Transform struct {
	sig Signature
	fn  TransformFunc
}

// NewTransform creates a Transform module for the signature
func NewTransform(sig Signature, fn TransformFunc) *Transform {
	return &Transform{sig: sig, fn: fn}
}

// Invoke applies the transform
func (t *Transform) Invoke(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	outputs, err := t.fn(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("%w: transform %s: %w", domain.ErrExecutionFailure, t.sig.Name, err)
	}
	return outputs, nil
}

// Signature returns the module's declared contract
func (t *Transform) Signature() Signature {
	return t.sig
}

// NoOpTracer is a tracer that does nothing
type NoOpTracer struct{}

func (t *NoOpTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, &NoOpSpan{}
}

// NoOpSpan is a span that does nothing
type NoOpSpan struct{}

func (s *NoOpSpan) End()                               {}
func (s *NoOpSpan) SetError(err error)                 {}
func (s *NoOpSpan) SetAttribute(key string, value any) {}

// NoOpMetrics is a metrics collector that does nothing
type NoOpMetrics struct{}

func (m *NoOpMetrics) RecordInvocation(module string, inputs, outputs map[string]any, err error) {}
