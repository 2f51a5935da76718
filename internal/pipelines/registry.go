package pipelines

import (
	"github.com/loomery/loom/internal/pipeline"
	"github.com/loomery/loom/internal/prompt"
)

// Builder constructs a fresh pipeline definition
type Builder func(opts ...prompt.Option) *pipeline.Pipeline

// Entry describes one bundled pipeline: how to build it and how to map a
// single text argument onto its input fields.
type Entry struct {
	Name        string
	Description string
	Build       Builder
	Inputs      func(text string) map[string]any
}

var catalog = []Entry{
	{
		Name:        "email",
		Description: "Triage an email: summary, entities, sentiment, priority and a suggested response",
		Build:       Email,
		Inputs:      EmailInputs,
	},
	{
		Name:        "code",
		Description: "Review a code snippet: description, issues, suggested fixes and test cases",
		Build:       Code,
		Inputs:      CodeInputs,
	},
	{
		Name:        "summarize",
		Description: "Summarize a document and count the summary's words",
		Build:       Summarizer,
		Inputs:      DocumentInputs,
	},
	{
		Name:        "entities",
		Description: "Extract named entities from text and infer their types",
		Build:       EntityExtraction,
		Inputs: func(text string) map[string]any {
			return map[string]any{"text": text}
		},
	},
	{
		Name:        "classify",
		Description: "Classify a document with a normalized confidence score",
		Build:       Classification,
		Inputs:      DocumentInputs,
	},
}

// Catalog returns the bundled pipelines in a stable order
func Catalog() []Entry {
	return catalog
}

// Lookup finds a bundled pipeline by name
func Lookup(name string) (Entry, bool) {
	for _, e := range catalog {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}
