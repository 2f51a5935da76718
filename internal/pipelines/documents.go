package pipelines

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"github.com/loomery/loom/internal/pipeline"
	"github.com/loomery/loom/internal/prompt"
)

const maxEntities = 5

// DocumentSummary pairs a model-written summary with its measured length.
type DocumentSummary struct {
	Summary   string `json:"summary" msgpack:"summary" validate:"required"`
	WordCount int    `json:"word_count" msgpack:"word_count" validate:"min=1"`
}

// DocumentEntities lists extracted entities alongside their inferred types.
type DocumentEntities struct {
	Entities    []string `json:"entities" msgpack:"entities"`
	EntityTypes []string `json:"entity_types" msgpack:"entity_types"`
}

// DocumentClassification is a category label with a normalized confidence.
type DocumentClassification struct {
	Label      string  `json:"label" msgpack:"label" validate:"required"`
	Confidence float64 `json:"confidence" msgpack:"confidence" validate:"gte=0,lte=1"`
}

// Summarizer builds a two-stage pipeline: a model summary followed by a
// deterministic word count over it.
func Summarizer(opts ...prompt.Option) *pipeline.Pipeline {
	return pipeline.New("summarize").
		Stage("summarize",
			newPredict(prompt.MustParseSignature("document -> summary"), opts...)).
		Stage("word_count",
			prompt.NewTransform(prompt.MustParseSignature("summary -> word_count: int"),
				func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
					s, _ := inputs["summary"].(string)
					return map[string]any{"word_count": len(strings.Fields(s))}, nil
				}),
			pipeline.DependsOn("summarize")).
		Finals("summarize", "word_count").
		Output(func(outputs map[string]map[string]any) (any, error) {
			return &DocumentSummary{
				Summary:   getString(outputs, "summarize", "summary"),
				WordCount: getInt(outputs, "word_count", "word_count"),
			}, nil
		})
}

// EntityExtraction builds a model extraction stage followed by a heuristic
// typing stage.
func EntityExtraction(opts ...prompt.Option) *pipeline.Pipeline {
	return pipeline.New("entities").
		Stage("extract",
			newPredict(prompt.MustParseSignature("text -> entities: list"), opts...)).
		Stage("type_entities",
			prompt.NewTransform(prompt.MustParseSignature("entities: list -> entity_types: list"),
				func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
					entities, _ := inputs["entities"].([]string)
					types := make([]string, len(entities))
					for i, e := range entities {
						types[i] = inferEntityType(e)
					}
					return map[string]any{"entity_types": types}, nil
				}),
			pipeline.DependsOn("extract")).
		Finals("extract", "type_entities").
		Output(func(outputs map[string]map[string]any) (any, error) {
			entities := getList(outputs, "extract", "entities")
			types := getList(outputs, "type_entities", "entity_types")
			if len(entities) > maxEntities {
				entities = entities[:maxEntities]
			}
			if len(types) > maxEntities {
				types = types[:maxEntities]
			}
			return &DocumentEntities{Entities: entities, EntityTypes: types}, nil
		})
}

// Classification builds a model classification stage followed by confidence
// normalization.
func Classification(opts ...prompt.Option) *pipeline.Pipeline {
	return pipeline.New("classify").
		Stage("classify",
			newPredict(prompt.MustParseSignature("document -> category, confidence_score"), opts...)).
		Stage("normalize",
			prompt.NewTransform(prompt.MustParseSignature("category, confidence_score -> label, confidence: float"),
				func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
					category, _ := inputs["category"].(string)
					return map[string]any{
						"label":      strings.TrimSpace(category),
						"confidence": parseConfidence(inputs["confidence_score"]),
					}, nil
				}),
			pipeline.DependsOn("classify")).
		Finals("normalize").
		Output(func(outputs map[string]map[string]any) (any, error) {
			return &DocumentClassification{
				Label:      getString(outputs, "normalize", "label"),
				Confidence: getFloat(outputs, "normalize", "confidence"),
			}, nil
		})
}

// DocumentInputs maps a document onto the field the document stages read
func DocumentInputs(document string) map[string]any {
	return map[string]any{"document": document, "text": document}
}

// parseConfidence normalizes the many shapes models return confidence in:
// a bare number, a percentage, or a verbal grade. Unparseable values fall
// back to 0.8.
func parseConfidence(v any) float64 {
	switch t := v.(type) {
	case float64:
		if t > 1 {
			return t / 100
		}
		return t
	case int:
		if t > 1 {
			return float64(t) / 100
		}
		return float64(t)
	case string:
		s := strings.TrimSpace(t)
		if strings.HasSuffix(s, "%") {
			if f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64); err == nil {
				return f / 100
			}
			return 0.8
		}
		switch strings.ToLower(s) {
		case "high", "very high":
			return 0.9
		case "medium":
			return 0.7
		case "low":
			return 0.5
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if f > 1 {
				return f / 100
			}
			return f
		}
	}
	return 0.8
}

// inferEntityType guesses an entity's category from surface patterns. Two
// capitalized words read as a person's name unless an earlier rule matched.
func inferEntityType(entity string) string {
	lower := strings.ToLower(entity)
	switch {
	case containsAny(lower, "inc", "corp", "company", "llc", "organization"):
		return "Organization"
	case containsAny(lower, "framework", "library", "api", "programming", "code", "schema", "system"):
		return "Technology"
	case containsAny(lower, "optimization", "execution", "process", "method"):
		return "Concept"
	case looksLikePersonName(entity):
		return "Person"
	default:
		return "Other"
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func looksLikePersonName(entity string) bool {
	if len(strings.Fields(entity)) != 2 {
		return false
	}
	for _, r := range entity {
		return unicode.IsUpper(r)
	}
	return false
}

// getString reads a string field from a stage's outputs, empty when absent
func getString(outputs map[string]map[string]any, stage, field string) string {
	s, _ := outputs[stage][field].(string)
	return s
}

// getList reads a list field from a stage's outputs, nil when absent
func getList(outputs map[string]map[string]any, stage, field string) []string {
	l, _ := outputs[stage][field].([]string)
	return l
}

// getInt reads an int field from a stage's outputs, zero when absent
func getInt(outputs map[string]map[string]any, stage, field string) int {
	i, _ := outputs[stage][field].(int)
	return i
}

// getFloat reads a float field from a stage's outputs, zero when absent
func getFloat(outputs map[string]map[string]any, stage, field string) float64 {
	f, _ := outputs[stage][field].(float64)
	return f
}
