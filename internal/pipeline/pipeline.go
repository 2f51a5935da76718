// Package pipeline composes modules into a dependency graph and runs them
// with maximal parallelism: a stage becomes ready the moment every stage it
// depends on has succeeded, and all ready stages run concurrently.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/loomery/loom/internal/domain"
	"github.com/loomery/loom/internal/prompt"
)

// OutputFunc assembles the structured result of a fully succeeded run from
// the per-stage output maps, keyed by stage name.
type OutputFunc func(outputs map[string]map[string]any) (any, error)

// Pipeline is an immutable-after-validation definition of a module graph.
type Pipeline struct {
	Name string

	stages []*StageNode
	byName map[string]*StageNode
	finals []string
	output OutputFunc
}

// New creates an empty pipeline definition
func New(name string) *Pipeline {
	return &Pipeline{
		Name:   name,
		byName: make(map[string]*StageNode),
	}
}

// Stage adds a named stage. Definition errors (duplicate names, unknown
// dependencies, cycles) surface from Validate, not here.
func (p *Pipeline) Stage(name string, mod prompt.Module, opts ...StageOption) *Pipeline {
	node := &StageNode{Name: name, Module: mod}
	for _, opt := range opts {
		opt(node)
	}
	p.stages = append(p.stages, node)
	p.byName[name] = node
	return p
}

// Finals names the stages whose outputs feed aggregation. When unset, the
// sink stages (those nothing depends on) are used.
func (p *Pipeline) Finals(names ...string) *Pipeline {
	p.finals = append(p.finals, names...)
	return p
}

// Output sets the aggregation function applied after a fully succeeded run
func (p *Pipeline) Output(fn OutputFunc) *Pipeline {
	p.output = fn
	return p
}

// Stages returns the stage definitions in declaration order
func (p *Pipeline) Stages() []*StageNode {
	return p.stages
}

// FinalStages resolves the aggregation sources: the declared finals, or the
// sink stages when none were declared.
func (p *Pipeline) FinalStages() []string {
	if len(p.finals) > 0 {
		return p.finals
	}
	hasDependent := make(map[string]bool, len(p.stages))
	for _, n := range p.stages {
		for _, dep := range n.DependsOn {
			hasDependent[dep] = true
		}
	}
	sinks := make([]string, 0, len(p.stages))
	for _, n := range p.stages {
		if !hasDependent[n.Name] {
			sinks = append(sinks, n.Name)
		}
	}
	return sinks
}

// Validate checks the definition: at least one stage, unique stage names,
// dependencies and finals referring to declared stages, bindings referring to
// declared dependencies, and an acyclic graph.
func (p *Pipeline) Validate() error {
	var errs []string

	if len(p.stages) == 0 {
		errs = append(errs, "pipeline has no stages")
	}

	seen := make(map[string]bool, len(p.stages))
	for _, n := range p.stages {
		if n.Name == "" {
			errs = append(errs, "stage with empty name")
			continue
		}
		if seen[n.Name] {
			errs = append(errs, fmt.Sprintf("duplicate stage name %q", n.Name))
		}
		seen[n.Name] = true
		if n.Module == nil {
			errs = append(errs, fmt.Sprintf("stage %q has no module", n.Name))
		}
	}

	for _, n := range p.stages {
		deps := make(map[string]bool, len(n.DependsOn))
		for _, dep := range n.DependsOn {
			if !seen[dep] {
				errs = append(errs, fmt.Sprintf("stage %q depends on unknown stage %q", n.Name, dep))
			}
			if dep == n.Name {
				errs = append(errs, fmt.Sprintf("stage %q depends on itself", n.Name))
			}
			deps[dep] = true
		}
		for input, ref := range n.Bindings {
			stage, field, ok := strings.Cut(ref, ".")
			if !ok || stage == "" || field == "" {
				errs = append(errs, fmt.Sprintf("stage %q: binding for %q must be \"stage.field\", got %q", n.Name, input, ref))
				continue
			}
			if !deps[stage] {
				errs = append(errs, fmt.Sprintf("stage %q: binding for %q references %q which is not a declared dependency", n.Name, input, stage))
			}
		}
	}

	for _, f := range p.finals {
		if !seen[f] {
			errs = append(errs, fmt.Sprintf("final stage %q is not defined", f))
		}
	}

	if cycle := findCycle(p.stages); cycle != "" {
		errs = append(errs, fmt.Sprintf("dependency cycle through stage %q", cycle))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrPipelineInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// findCycle runs Kahn's algorithm and returns a stage on a cycle, or ""
func findCycle(stages []*StageNode) string {
	indegree := make(map[string]int, len(stages))
	dependents := make(map[string][]string, len(stages))
	for _, n := range stages {
		indegree[n.Name] += 0
		for _, dep := range n.DependsOn {
			indegree[n.Name]++
			dependents[dep] = append(dependents[dep], n.Name)
		}
	}

	queue := make([]string, 0, len(stages))
	for _, n := range stages {
		if indegree[n.Name] == 0 {
			queue = append(queue, n.Name)
		}
	}

	visited := 0
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range dependents[name] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if visited == len(stages) {
		return ""
	}
	for _, n := range stages {
		if indegree[n.Name] > 0 {
			return n.Name
		}
	}
	return ""
}
