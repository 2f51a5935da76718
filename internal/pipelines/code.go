package pipelines

import (
	"github.com/loomery/loom/internal/pipeline"
	"github.com/loomery/loom/internal/prompt"
)

// CodeAnalysis is the aggregated result of the code review pipeline.
type CodeAnalysis struct {
	Description string `json:"description" msgpack:"description" validate:"required"`
	Issues      string `json:"issues" msgpack:"issues" validate:"required"`
	Suggestions string `json:"suggestions" msgpack:"suggestions" validate:"required"`
	Tests       string `json:"tests" msgpack:"tests" validate:"required"`
}

// Code builds the code review pipeline. Issue finding and test generation
// both need only the code and its description, so they run concurrently;
// issue finding uses chain-of-thought since it benefits from reasoning steps.
func Code(opts ...prompt.Option) *pipeline.Pipeline {
	return pipeline.New("code").
		Stage("understand",
			newPredict(prompt.MustParseSignature("code -> description"), opts...)).
		Stage("find_issues",
			newChainOfThought(prompt.MustParseSignature("code, description -> issues"), opts...),
			pipeline.DependsOn("understand")).
		Stage("generate_tests",
			newPredict(prompt.MustParseSignature("code, description -> tests"), opts...),
			pipeline.DependsOn("understand")).
		Stage("suggest_fixes",
			newPredict(prompt.MustParseSignature("code, issues -> suggestions"), opts...),
			pipeline.DependsOn("find_issues")).
		Finals("understand", "find_issues", "suggest_fixes", "generate_tests").
		Output(func(outputs map[string]map[string]any) (any, error) {
			return &CodeAnalysis{
				Description: getString(outputs, "understand", "description"),
				Issues:      getString(outputs, "find_issues", "issues"),
				Suggestions: getString(outputs, "suggest_fixes", "suggestions"),
				Tests:       getString(outputs, "generate_tests", "tests"),
			}, nil
		})
}

// CodeInputs maps a source snippet onto the field the code stages read
func CodeInputs(source string) map[string]any {
	return map[string]any{"code": source}
}
