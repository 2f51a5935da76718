// Package executor runs a single module invocation under the full contract:
// declared inputs present before the call, declared outputs present and
// well-typed after it, transient execution failures retried under a
// caller-supplied backoff policy. Contract and validation failures are
// deterministic and never retried.
package executor

import (
	"context"
	"errors"
	"time"

	"github.com/loomery/loom/internal/adapters/id"
	"github.com/loomery/loom/internal/adapters/retry"
	"github.com/loomery/loom/internal/domain"
	"github.com/loomery/loom/internal/prompt"
)

// Result is the outcome of a single execution. Err is nil exactly when the
// invocation succeeded and its outputs passed coercion.
type Result struct {
	Outputs   map[string]any
	Kind      domain.FailureKind // empty on success
	Err       error
	Attempts  int    // module invocations performed, 0 when inputs were rejected
	AttemptID string // identifier of the last invocation attempt, empty when none ran
	Duration  time.Duration
}

// Succeeded reports whether the execution produced usable outputs
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Executor executes modules. It is stateless and safe for concurrent use.
type Executor struct {
	retry retry.Policy
	ids   *id.Generator
}

// Option configures an Executor
type Option func(*Executor)

// WithRetryPolicy sets the backoff policy applied around execution failures
func WithRetryPolicy(p retry.Policy) Option {
	return func(e *Executor) {
		e.retry = p
	}
}

// New creates an Executor with the default backoff policy
func New(opts ...Option) *Executor {
	e := &Executor{retry: retry.DefaultPolicy(), ids: id.New()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one module invocation. Inputs are checked against the module's
// signature before the call; outputs are coerced against it after. Only
// execution failures go through the retry loop, a contract or validation
// failure returns on the first occurrence.
func (e *Executor) Execute(ctx context.Context, mod prompt.Module, inputs map[string]any) Result {
	start := time.Now()
	sig := mod.Signature()

	if err := sig.ValidateInputs(inputs); err != nil {
		return Result{
			Kind:     domain.FailureContract,
			Err:      err,
			Duration: time.Since(start),
		}
	}

	var outputs map[string]any
	attempts := 0
	attemptID := ""
	err := e.retry.Do(ctx, func(err error) bool { return Classify(err).Retryable() }, func() error {
		attempts++
		attemptID = e.ids.GenerateStageAttemptID()
		var invokeErr error
		outputs, invokeErr = mod.Invoke(ctx, inputs)
		return invokeErr
	})
	if err != nil {
		return Result{
			Kind:      Classify(err),
			Err:       err,
			Attempts:  attempts,
			AttemptID: attemptID,
			Duration:  time.Since(start),
		}
	}

	coerced, err := sig.CoerceOutputs(outputs)
	if err != nil {
		return Result{
			Kind:      Classify(err),
			Err:       err,
			Attempts:  attempts,
			AttemptID: attemptID,
			Duration:  time.Since(start),
		}
	}

	return Result{
		Outputs:   coerced,
		Attempts:  attempts,
		AttemptID: attemptID,
		Duration:  time.Since(start),
	}
}

// Classify maps an error to its failure kind. Timeouts and cancellations are
// recognized anywhere in the chain, so a module that wraps ctx.Err() still
// classifies correctly.
func Classify(err error) domain.FailureKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, domain.ErrStageTimeout):
		return domain.FailureTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, domain.ErrStageCancelled):
		return domain.FailureCancelled
	case errors.Is(err, domain.ErrMissingInput), errors.Is(err, domain.ErrContractViolation):
		return domain.FailureContract
	case errors.Is(err, domain.ErrValidationFailure):
		return domain.FailureValidation
	default:
		return domain.FailureExecution
	}
}
