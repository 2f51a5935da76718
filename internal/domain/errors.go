package domain

import "errors"

// Failure taxonomy for module execution and pipeline runs
var (
	// Contract errors: the module or its caller broke the declared signature.
	// These are programming errors and are never retried.
	ErrContractViolation = errors.New("module output violates its signature contract")
	ErrMissingInput      = errors.New("required input field is missing")

	// Validation errors: the output is present but does not satisfy the
	// declared field types. Retrying identical inputs will not fix these.
	ErrValidationFailure = errors.New("output failed schema validation")

	// Execution errors: the underlying model call failed or timed out.
	// These are the only failures a retry policy applies to.
	ErrExecutionFailure = errors.New("module execution failed")
	ErrStageTimeout     = errors.New("stage timed out")

	// Run-level errors
	ErrAggregation     = errors.New("failed to assemble structured result")
	ErrRunCancelled    = errors.New("pipeline run cancelled")
	ErrStageCancelled  = errors.New("stage cancelled")
	ErrPipelineInvalid = errors.New("pipeline definition is invalid")

	// Backend errors
	ErrBackendUnavailable = errors.New("model backend unavailable")
	ErrEmptyResponse      = errors.New("model backend returned no content")
)

// FailureKind classifies a stage failure for reporting and retry decisions
type FailureKind string

const (
	FailureContract   FailureKind = "contract_violation"
	FailureValidation FailureKind = "validation_failure"
	FailureExecution  FailureKind = "execution_failure"
	FailureTimeout    FailureKind = "timeout"
	FailureCancelled  FailureKind = "cancelled"
)

// Retryable reports whether a failure of this kind may be retried. Only
// execution failures qualify: a malformed contract will not be fixed by
// retrying unchanged inputs.
func (k FailureKind) Retryable() bool {
	return k == FailureExecution
}

// StageError wraps a failure with the stage it occurred in
type StageError struct {
	Stage string
	Kind  FailureKind
	Err   error
}

func (e *StageError) Error() string {
	return "stage " + e.Stage + ": " + string(e.Kind) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func NewStageError(stage string, kind FailureKind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}
