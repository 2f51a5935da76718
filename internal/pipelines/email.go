// Package pipelines bundles the pipeline definitions that ship with the loom
// binary: email triage, code review and a few document tools. Each builder
// returns a fresh definition so concurrent runs never share module state.
package pipelines

import (
	"github.com/loomery/loom/internal/pipeline"
	"github.com/loomery/loom/internal/prompt"
)

// Module constructors are package variables; tests swap in deterministic
// modules so pipeline wiring is covered without a model backend.
var (
	newPredict = func(sig prompt.Signature, opts ...prompt.Option) prompt.Module {
		return prompt.NewPredict(sig, opts...)
	}
	newChainOfThought = func(sig prompt.Signature, opts ...prompt.Option) prompt.Module {
		return prompt.NewChainOfThought(sig, opts...)
	}
)

// EmailAnalysis is the aggregated result of the email triage pipeline.
type EmailAnalysis struct {
	Summary           string   `json:"summary" msgpack:"summary" validate:"required"`
	Entities          []string `json:"entities" msgpack:"entities" validate:"required,min=1"`
	Sentiment         string   `json:"sentiment" msgpack:"sentiment" validate:"required"`
	Priority          string   `json:"priority" msgpack:"priority" validate:"required"`
	SuggestedResponse string   `json:"suggested_response" msgpack:"suggested_response" validate:"required"`
}

// Email builds the email triage pipeline. Summarization, entity extraction
// and sentiment analysis fan out from the raw message; priority needs the
// summary and the sentiment; the suggested response needs everything above.
func Email(opts ...prompt.Option) *pipeline.Pipeline {
	return pipeline.New("email").
		Stage("summarize",
			newPredict(prompt.MustParseSignature("email -> summary"), opts...)).
		Stage("extract_entities",
			newPredict(prompt.MustParseSignature("text -> entities: list"), opts...)).
		Stage("analyze_sentiment",
			newPredict(prompt.MustParseSignature("text -> sentiment"), opts...)).
		Stage("determine_priority",
			newPredict(prompt.MustParseSignature("summary, sentiment -> priority"), opts...),
			pipeline.DependsOn("summarize", "analyze_sentiment")).
		Stage("suggest_response",
			newPredict(prompt.MustParseSignature("summary, sentiment, priority -> response"), opts...),
			pipeline.DependsOn("summarize", "analyze_sentiment", "determine_priority")).
		Finals("summarize", "extract_entities", "analyze_sentiment", "determine_priority", "suggest_response").
		Output(func(outputs map[string]map[string]any) (any, error) {
			return &EmailAnalysis{
				Summary:           getString(outputs, "summarize", "summary"),
				Entities:          getList(outputs, "extract_entities", "entities"),
				Sentiment:         getString(outputs, "analyze_sentiment", "sentiment"),
				Priority:          getString(outputs, "determine_priority", "priority"),
				SuggestedResponse: getString(outputs, "suggest_response", "response"),
			}, nil
		})
}

// EmailInputs maps a raw message onto the field names the email stages read
func EmailInputs(body string) map[string]any {
	return map[string]any{"email": body, "text": body}
}
