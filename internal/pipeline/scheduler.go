package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/loomery/loom/internal/adapters/id"
	"github.com/loomery/loom/internal/adapters/metrics"
	"github.com/loomery/loom/internal/domain"
	"github.com/loomery/loom/internal/executor"
	"github.com/loomery/loom/internal/prompt"
)

// Runner executes pipeline definitions. It is safe for concurrent use; all
// per-run state lives inside Run.
type Runner struct {
	exec          *executor.Executor
	ids           *id.Generator
	tracer        prompt.Tracer
	policy        FailurePolicy
	stageTimeout  time.Duration
	maxConcurrent int // 0 means unbounded
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithPolicy sets the failure policy applied to every run
func WithPolicy(p FailurePolicy) RunnerOption {
	return func(r *Runner) {
		r.policy = p
	}
}

// WithStageTimeout sets the default per-stage wall clock budget. A stage's
// own WithTimeout takes precedence. Zero disables the budget.
func WithStageTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.stageTimeout = d
	}
}

// WithMaxConcurrentStages bounds how many stages run at once
func WithMaxConcurrentStages(n int) RunnerOption {
	return func(r *Runner) {
		r.maxConcurrent = n
	}
}

// WithExecutor replaces the default executor, typically to change the retry
// policy
func WithExecutor(e *executor.Executor) RunnerOption {
	return func(r *Runner) {
		r.exec = e
	}
}

// WithRunTracer sets the tracer used for run and stage spans
func WithRunTracer(t prompt.Tracer) RunnerOption {
	return func(r *Runner) {
		r.tracer = t
	}
}

// NewRunner creates a Runner with AbortAll policy and no stage timeout
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		exec:   executor.New(),
		ids:    id.New(),
		tracer: &prompt.NoOpTracer{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// stageState is the scheduler's view of one stage. It is only ever touched
// by the event loop goroutine.
type stageState struct {
	node    *StageNode
	status  StageStatus
	waiting int
	result  executor.Result
	cause   error // set when the stage is cancelled without running
}

type stageDone struct {
	name string
	res  executor.Result
}

// Run executes the pipeline to completion and returns the full run record.
// The returned error is non-nil only when the definition itself is invalid;
// stage failures are reported through the RunResult.
func (r *Runner) Run(ctx context.Context, p *Pipeline, inputs map[string]any) (*RunResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	runID := r.ids.GenerateRunID()
	start := time.Now()

	ctx, span := r.tracer.StartSpan(ctx, "run."+p.Name)
	span.SetAttribute("run_id", runID)
	defer span.End()

	states := make(map[string]*stageState, len(p.stages))
	dependents := make(map[string][]string, len(p.stages))
	for _, n := range p.stages {
		states[n.Name] = &stageState{node: n, status: StagePending, waiting: len(n.DependsOn)}
		for _, dep := range n.DependsOn {
			dependents[dep] = append(dependents[dep], n.Name)
		}
	}
	for _, st := range states {
		if st.waiting == 0 {
			st.status = StageReady
		}
	}

	results := make(chan stageDone)
	running := 0
	aborting := false
	ctxDone := false

	dispatch := func(st *stageState) {
		st.status = StageRunning
		running++
		stageInputs := r.resolveInputs(st.node, states, inputs)
		timeout := st.node.Timeout
		if timeout == 0 {
			timeout = r.stageTimeout
		}
		go func(name string, mod prompt.Module, in map[string]any) {
			sctx, sspan := r.tracer.StartSpan(ctx, "stage."+name)
			defer sspan.End()
			cancel := context.CancelFunc(func() {})
			if timeout > 0 {
				sctx, cancel = context.WithTimeout(sctx, timeout)
			}
			defer cancel()
			res := r.exec.Execute(sctx, mod, in)
			if res.AttemptID != "" {
				sspan.SetAttribute("attempt_id", res.AttemptID)
			}
			if res.Err != nil {
				sspan.SetError(res.Err)
			}
			results <- stageDone{name: name, res: res}
		}(st.node.Name, st.node.Module, stageInputs)
	}

	dispatchReady := func() {
		if aborting || ctxDone {
			return
		}
		for _, n := range p.stages {
			if r.maxConcurrent > 0 && running >= r.maxConcurrent {
				return
			}
			st := states[n.Name]
			if st.status == StageReady {
				dispatch(st)
			}
		}
	}

	// cancelDependents walks the transitive dependents of a failed stage and
	// marks the not-yet-running ones cancelled.
	var cancelDependents func(name string, cause error)
	cancelDependents = func(name string, cause error) {
		for _, next := range dependents[name] {
			st := states[next]
			if st.status == StagePending || st.status == StageReady {
				st.status = StageCancelled
				st.cause = cause
				metrics.StagesTotal.WithLabelValues(p.Name, next, st.status.String()).Inc()
				cancelDependents(next, cause)
			}
		}
	}

	handle := func(d stageDone) {
		running--
		st := states[d.name]
		st.result = d.res

		metrics.StageDuration.WithLabelValues(p.Name, d.name).Observe(d.res.Duration.Seconds())
		if d.res.Attempts > 1 {
			metrics.StageRetriesTotal.WithLabelValues(p.Name, d.name).Add(float64(d.res.Attempts - 1))
		}

		if d.res.Succeeded() {
			st.status = StageSucceeded
			for _, next := range dependents[d.name] {
				ns := states[next]
				ns.waiting--
				if ns.waiting == 0 && ns.status == StagePending {
					ns.status = StageReady
				}
			}
		} else if d.res.Kind == domain.FailureCancelled {
			// In-flight stage interrupted by run cancellation
			st.status = StageCancelled
			st.cause = d.res.Err
		} else {
			st.status = StageFailed
			log.Printf("pipeline %s run %s: stage %s failed (%s): %v", p.Name, runID, d.name, d.res.Kind, d.res.Err)
			cause := fmt.Errorf("%w: upstream stage %s failed", domain.ErrStageCancelled, d.name)
			switch r.policy {
			case AbortAll:
				aborting = true
			case BestEffort:
				cancelDependents(d.name, cause)
			}
		}
		metrics.StagesTotal.WithLabelValues(p.Name, d.name, st.status.String()).Inc()
	}

	dispatchReady()
	for running > 0 {
		if ctxDone {
			handle(<-results)
			continue
		}
		select {
		case <-ctx.Done():
			ctxDone = true
		case d := <-results:
			handle(d)
			dispatchReady()
		}
	}

	// Whatever never ran is cancelled: either the run context expired, the
	// policy stopped dispatching, or an upstream dependency never succeeded.
	for _, st := range states {
		if st.status.Terminal() {
			continue
		}
		st.status = StageCancelled
		if st.cause == nil {
			if ctxDone {
				st.cause = fmt.Errorf("%w: %w", domain.ErrStageCancelled, ctx.Err())
			} else {
				st.cause = domain.ErrStageCancelled
			}
		}
		metrics.StagesTotal.WithLabelValues(p.Name, st.node.Name, st.status.String()).Inc()
	}

	result := r.collect(p, runID, states, ctxDone, time.Since(start))
	if result.Err != nil {
		span.SetError(result.Err)
	}
	metrics.RunsTotal.WithLabelValues(p.Name, string(result.Status)).Inc()
	metrics.RunDuration.WithLabelValues(p.Name).Observe(result.Duration.Seconds())
	return result, nil
}

// resolveInputs builds a stage's input map field by field: an explicit
// binding wins, then dependency outputs in declared order, then the run
// inputs. A field found nowhere is left absent and surfaces as a contract
// violation from the executor.
func (r *Runner) resolveInputs(node *StageNode, states map[string]*stageState, runInputs map[string]any) map[string]any {
	depOutputs := func(name string) map[string]any {
		st, ok := states[name]
		if !ok || st.status != StageSucceeded {
			return nil
		}
		return st.result.Outputs
	}

	in := make(map[string]any)
	for _, f := range node.Module.Signature().InputFields() {
		if ref, ok := node.Bindings[f.Name]; ok {
			stage, field, _ := strings.Cut(ref, ".")
			if out := depOutputs(stage); out != nil {
				if v, present := out[field]; present {
					in[f.Name] = v
				}
			}
			continue
		}

		resolved := false
		for _, dep := range node.DependsOn {
			if out := depOutputs(dep); out != nil {
				if v, present := out[f.Name]; present {
					in[f.Name] = v
					resolved = true
					break
				}
			}
		}
		if resolved {
			continue
		}

		if v, present := runInputs[f.Name]; present {
			in[f.Name] = v
		}
	}
	return in
}

// collect turns the terminal stage states into a RunResult, running
// aggregation only when every stage succeeded.
func (r *Runner) collect(p *Pipeline, runID string, states map[string]*stageState, ctxDone bool, elapsed time.Duration) *RunResult {
	result := &RunResult{
		RunID:    runID,
		Pipeline: p.Name,
		Stages:   make(map[string]StageResult, len(states)),
		Duration: elapsed,
	}

	allSucceeded := true
	var firstFailure error
	for _, n := range p.stages {
		st := states[n.Name]
		sr := StageResult{
			Stage:     n.Name,
			Status:    st.status,
			Outputs:   st.result.Outputs,
			Kind:      st.result.Kind,
			Err:       st.result.Err,
			Attempts:  st.result.Attempts,
			AttemptID: st.result.AttemptID,
			Duration:  st.result.Duration,
		}
		switch st.status {
		case StageFailed:
			allSucceeded = false
			if firstFailure == nil {
				firstFailure = domain.NewStageError(n.Name, st.result.Kind, st.result.Err)
			}
		case StageCancelled:
			allSucceeded = false
			sr.Kind = domain.FailureCancelled
			sr.Err = st.cause
		}
		result.Stages[n.Name] = sr
	}

	switch {
	case ctxDone:
		result.Status = RunCancelled
		result.Err = domain.ErrRunCancelled
	case !allSucceeded:
		result.Status = RunFailed
		result.Err = firstFailure
		if result.Err == nil {
			result.Err = domain.ErrRunCancelled
		}
	default:
		output, err := assembleOutput(p, result)
		if err != nil {
			result.Status = RunFailed
			result.Err = err
		} else {
			result.Status = RunSucceeded
			result.Output = output
		}
	}
	return result
}
