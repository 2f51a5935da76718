package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/loomery/loom/internal/domain"
)

// FailurePolicy controls what happens to the rest of the graph when a stage
// fails.
type FailurePolicy int

const (
	// AbortAll dispatches nothing new after the first failure. Stages
	// already in flight run to completion and their results are recorded.
	AbortAll FailurePolicy = iota
	// BestEffort cancels only the transitive dependents of a failed stage;
	// independent branches keep running.
	BestEffort
)

func (p FailurePolicy) String() string {
	if p == BestEffort {
		return "best-effort"
	}
	return "abort"
}

// ParsePolicy converts the configuration spelling of a policy
func ParsePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "abort", "abort-all":
		return AbortAll, nil
	case "best-effort":
		return BestEffort, nil
	default:
		return AbortAll, fmt.Errorf("unknown failure policy %q", s)
	}
}

// RunStatus is the terminal status of a whole run
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// StageResult records how one stage ended.
type StageResult struct {
	Stage     string
	Status    StageStatus
	Outputs   map[string]any
	Kind      domain.FailureKind
	Err       error
	Attempts  int
	AttemptID string // identifier of the last executor attempt, empty when the stage never ran
	Duration  time.Duration
}

// RunResult is the full record of a pipeline run: every stage's terminal
// status plus the aggregated output when the run succeeded.
type RunResult struct {
	RunID    string
	Pipeline string
	Status   RunStatus
	Stages   map[string]StageResult
	Output   any
	Err      error
	Duration time.Duration
}

// Succeeded reports whether every stage succeeded and aggregation passed
func (r *RunResult) Succeeded() bool {
	return r.Status == RunSucceeded
}

// FailedStages returns the names of failed stages in sorted order
func (r *RunResult) FailedStages() []string {
	var names []string
	for name, sr := range r.Stages {
		if sr.Status == StageFailed {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// FailureReport renders a human-readable account of everything that went
// wrong, one line per failed or cancelled stage.
func (r *RunResult) FailureReport() string {
	if r.Status == RunSucceeded {
		return ""
	}

	names := make([]string, 0, len(r.Stages))
	for name := range r.Stages {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "run %s %s\n", r.RunID, r.Status)
	for _, name := range names {
		sr := r.Stages[name]
		switch sr.Status {
		case StageFailed:
			fmt.Fprintf(&b, "  %s: %s: %v\n", name, sr.Kind, sr.Err)
		case StageCancelled:
			fmt.Fprintf(&b, "  %s: cancelled\n", name)
		}
	}
	return b.String()
}
