package pipeline

import (
	"time"

	"github.com/loomery/loom/internal/prompt"
)

// StageStatus is a stage's position in its lifecycle. A stage moves
// Pending -> Ready -> Running and ends in exactly one of Succeeded, Failed
// or Cancelled.
type StageStatus int

const (
	StagePending StageStatus = iota
	StageReady
	StageRunning
	StageSucceeded
	StageFailed
	StageCancelled
)

func (s StageStatus) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageReady:
		return "ready"
	case StageRunning:
		return "running"
	case StageSucceeded:
		return "succeeded"
	case StageFailed:
		return "failed"
	case StageCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the stage has reached a final status
func (s StageStatus) Terminal() bool {
	return s == StageSucceeded || s == StageFailed || s == StageCancelled
}

// StageNode is one named unit of work in a pipeline definition.
type StageNode struct {
	Name      string
	Module    prompt.Module
	DependsOn []string
	// Bindings maps an input field to an explicit "stage.field" source,
	// overriding the positional resolution against dependency outputs.
	Bindings map[string]string
	// Timeout overrides the runner's per-stage budget when non-zero.
	Timeout time.Duration
}

// StageOption configures a stage at definition time
type StageOption func(*StageNode)

// DependsOn declares upstream stages whose outputs this stage consumes
func DependsOn(names ...string) StageOption {
	return func(n *StageNode) {
		n.DependsOn = append(n.DependsOn, names...)
	}
}

// WithTimeout sets a per-stage wall clock budget
func WithTimeout(d time.Duration) StageOption {
	return func(n *StageNode) {
		n.Timeout = d
	}
}

// WithBinding routes an input field to a specific upstream output, written
// as "stage.field". The referenced stage must be a declared dependency.
func WithBinding(input, ref string) StageOption {
	return func(n *StageNode) {
		if n.Bindings == nil {
			n.Bindings = make(map[string]string)
		}
		n.Bindings[input] = ref
	}
}
