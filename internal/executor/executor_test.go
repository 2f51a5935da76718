package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/loomery/loom/internal/adapters/retry"
	"github.com/loomery/loom/internal/domain"
	"github.com/loomery/loom/internal/prompt"
)

type fakeModule struct {
	sig   prompt.Signature
	fn    func(ctx context.Context, inputs map[string]any) (map[string]any, error)
	calls int
}

func (m *fakeModule) Invoke(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	m.calls++
	return m.fn(ctx, inputs)
}

func (m *fakeModule) Signature() prompt.Signature {
	return m.sig
}

func fastRetry(maxRetries int) retry.Policy {
	return retry.Policy{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxRetries:      maxRetries,
		Multiplier:      2.0,
	}
}

func TestExecuteSuccess(t *testing.T) {
	mod := &fakeModule{
		sig: prompt.MustParseSignature("document -> summary: str, word_count: int"),
		fn: func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			return map[string]any{"summary": "short", "word_count": "5"}, nil
		},
	}
	e := New(WithRetryPolicy(retry.None()))

	res := e.Execute(context.Background(), mod, map[string]any{"document": "long text"})
	if !res.Succeeded() {
		t.Fatalf("Execute() error = %v", res.Err)
	}
	if res.Outputs["word_count"] != 5 {
		t.Errorf("word_count = %v (%T), want coerced int 5", res.Outputs["word_count"], res.Outputs["word_count"])
	}
	if res.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", res.Attempts)
	}
}

func TestExecuteStampsAttemptID(t *testing.T) {
	mod := &fakeModule{
		sig: prompt.MustParseSignature("question -> answer"),
		fn: func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			return map[string]any{"answer": "42"}, nil
		},
	}
	e := New(WithRetryPolicy(retry.None()))

	first := e.Execute(context.Background(), mod, map[string]any{"question": "Q"})
	second := e.Execute(context.Background(), mod, map[string]any{"question": "Q"})
	if !strings.HasPrefix(first.AttemptID, "att_") {
		t.Errorf("AttemptID = %q, want att_ prefix", first.AttemptID)
	}
	if first.AttemptID == second.AttemptID {
		t.Error("distinct invocations share an AttemptID")
	}

	rejected := e.Execute(context.Background(), mod, map[string]any{})
	if rejected.AttemptID != "" {
		t.Errorf("AttemptID = %q on rejected inputs, want empty: no invocation ran", rejected.AttemptID)
	}
}

func TestExecuteMissingInput(t *testing.T) {
	mod := &fakeModule{
		sig: prompt.MustParseSignature("summary, sentiment -> priority"),
		fn: func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			return map[string]any{"priority": "high"}, nil
		},
	}
	e := New(WithRetryPolicy(retry.None()))

	res := e.Execute(context.Background(), mod, map[string]any{"summary": "S"})
	if res.Succeeded() {
		t.Fatal("Execute() succeeded, want contract violation")
	}
	if res.Kind != domain.FailureContract {
		t.Errorf("Kind = %v, want %v", res.Kind, domain.FailureContract)
	}
	if !errors.Is(res.Err, domain.ErrMissingInput) {
		t.Errorf("Err = %v, want ErrMissingInput", res.Err)
	}
	if mod.calls != 0 {
		t.Errorf("module invoked %d times, want 0: inputs must be checked before the call", mod.calls)
	}
}

func TestExecuteMissingOutput(t *testing.T) {
	mod := &fakeModule{
		sig: prompt.MustParseSignature("document -> summary, word_count: int"),
		fn: func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			return map[string]any{"summary": "S"}, nil
		},
	}
	e := New(WithRetryPolicy(fastRetry(3)))

	res := e.Execute(context.Background(), mod, map[string]any{"document": "D"})
	if res.Kind != domain.FailureContract {
		t.Errorf("Kind = %v, want %v", res.Kind, domain.FailureContract)
	}
	if !errors.Is(res.Err, domain.ErrContractViolation) {
		t.Errorf("Err = %v, want ErrContractViolation", res.Err)
	}
	if mod.calls != 1 {
		t.Errorf("module invoked %d times, want 1: contract violations are not retried", mod.calls)
	}
}

func TestExecuteUncoercibleOutput(t *testing.T) {
	mod := &fakeModule{
		sig: prompt.MustParseSignature("document -> word_count: int"),
		fn: func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			return map[string]any{"word_count": "many"}, nil
		},
	}
	e := New(WithRetryPolicy(fastRetry(3)))

	res := e.Execute(context.Background(), mod, map[string]any{"document": "D"})
	if res.Kind != domain.FailureValidation {
		t.Errorf("Kind = %v, want %v", res.Kind, domain.FailureValidation)
	}
	if mod.calls != 1 {
		t.Errorf("module invoked %d times, want 1: validation failures are not retried", mod.calls)
	}
}

func TestExecuteRetriesExecutionFailure(t *testing.T) {
	failures := 2
	mod := &fakeModule{
		sig: prompt.MustParseSignature("question -> answer"),
		fn: func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			if failures > 0 {
				failures--
				return nil, fmt.Errorf("%w: backend hiccup", domain.ErrExecutionFailure)
			}
			return map[string]any{"answer": "42"}, nil
		},
	}
	e := New(WithRetryPolicy(fastRetry(3)))

	res := e.Execute(context.Background(), mod, map[string]any{"question": "Q"})
	if !res.Succeeded() {
		t.Fatalf("Execute() error = %v", res.Err)
	}
	if res.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", res.Attempts)
	}
}

func TestExecuteRetryExhaustion(t *testing.T) {
	mod := &fakeModule{
		sig: prompt.MustParseSignature("question -> answer"),
		fn: func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			return nil, fmt.Errorf("%w: backend down", domain.ErrExecutionFailure)
		},
	}
	e := New(WithRetryPolicy(fastRetry(2)))

	res := e.Execute(context.Background(), mod, map[string]any{"question": "Q"})
	if res.Succeeded() {
		t.Fatal("Execute() succeeded, want exhaustion")
	}
	if res.Kind != domain.FailureExecution {
		t.Errorf("Kind = %v, want %v", res.Kind, domain.FailureExecution)
	}
	if mod.calls != 3 {
		t.Errorf("module invoked %d times, want 3 (initial + 2 retries)", mod.calls)
	}
}

func TestExecuteDoesNotRetryValidationFromModule(t *testing.T) {
	mod := &fakeModule{
		sig: prompt.MustParseSignature("question -> answer"),
		fn: func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			return nil, fmt.Errorf("%w: malformed response", domain.ErrValidationFailure)
		},
	}
	e := New(WithRetryPolicy(fastRetry(3)))

	res := e.Execute(context.Background(), mod, map[string]any{"question": "Q"})
	if res.Kind != domain.FailureValidation {
		t.Errorf("Kind = %v, want %v", res.Kind, domain.FailureValidation)
	}
	if mod.calls != 1 {
		t.Errorf("module invoked %d times, want 1", mod.calls)
	}
}

func TestExecuteTimeout(t *testing.T) {
	mod := &fakeModule{
		sig: prompt.MustParseSignature("question -> answer"),
		fn: func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			<-ctx.Done()
			return nil, fmt.Errorf("%w: %w", domain.ErrExecutionFailure, ctx.Err())
		},
	}
	e := New(WithRetryPolicy(fastRetry(3)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	res := e.Execute(ctx, mod, map[string]any{"question": "Q"})
	if res.Kind != domain.FailureTimeout {
		t.Errorf("Kind = %v, want %v", res.Kind, domain.FailureTimeout)
	}
	if mod.calls != 1 {
		t.Errorf("module invoked %d times, want 1: deadline expiry is terminal", mod.calls)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.FailureKind
	}{
		{"deadline exceeded", context.DeadlineExceeded, domain.FailureTimeout},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), domain.FailureTimeout},
		{"stage timeout", domain.ErrStageTimeout, domain.FailureTimeout},
		{"cancelled", context.Canceled, domain.FailureCancelled},
		{"stage cancelled", domain.ErrStageCancelled, domain.FailureCancelled},
		{"missing input", domain.ErrMissingInput, domain.FailureContract},
		{"contract violation", domain.ErrContractViolation, domain.FailureContract},
		{"validation failure", domain.ErrValidationFailure, domain.FailureValidation},
		{"execution failure", domain.ErrExecutionFailure, domain.FailureExecution},
		{"arbitrary error", errors.New("boom"), domain.FailureExecution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
