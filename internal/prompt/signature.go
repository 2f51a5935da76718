package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/XiaoConstantine/dspy-go/pkg/core"

	"github.com/loomery/loom/internal/domain"
)

// FieldKind is the semantic type a signature declares for a field
type FieldKind int

const (
	KindString FieldKind = iota
	KindInt
	KindFloat
	KindBool
	KindList
)

func (k FieldKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return "str"
	}
}

// TypedField is one declared input or output field
type TypedField struct {
	Name string
	Kind FieldKind
}

// Signature wraps dspy-go's signature with Loom's typed field contract.
// A module's forward contract may reference only the declared inputs and must
// populate every declared output on success.
type Signature struct {
	core.Signature
	Name    string
	inputs  []TypedField
	outputs []TypedField
}

// MustParseSignature creates a signature from a string or panics
func MustParseSignature(sig string) Signature {
	s, err := ParseSignature(sig)
	if err != nil {
		panic(fmt.Sprintf("failed to parse signature: %v", err))
	}
	return s
}

// ParseSignature creates a signature from a string like
// "input1, input2 -> output1, output2". Fields may carry type annotations:
// "document -> summary: str, word_count: int".
func ParseSignature(sig string) (Signature, error) {
	parts := strings.Split(sig, "->")
	if len(parts) != 2 {
		return Signature{}, fmt.Errorf("invalid signature format: %s", sig)
	}

	inputFields, err := parseFields(strings.TrimSpace(parts[0]))
	if err != nil {
		return Signature{}, fmt.Errorf("invalid inputs in %q: %w", sig, err)
	}
	outputFields, err := parseFields(strings.TrimSpace(parts[1]))
	if err != nil {
		return Signature{}, fmt.Errorf("invalid outputs in %q: %w", sig, err)
	}
	if len(inputFields) == 0 || len(outputFields) == 0 {
		return Signature{}, fmt.Errorf("signature needs at least one input and one output: %s", sig)
	}

	inputs := make([]core.InputField, len(inputFields))
	for i, f := range inputFields {
		inputs[i] = core.InputField{Field: core.NewField(f.Name)}
	}

	outputs := make([]core.OutputField, len(outputFields))
	for i, f := range outputFields {
		outputs[i] = core.OutputField{Field: core.NewField(f.Name)}
	}

	coreSig := core.NewSignature(inputs, outputs)

	return Signature{
		Signature: coreSig,
		Name:      generateName(sig),
		inputs:    inputFields,
		outputs:   outputFields,
	}, nil
}

// parseFields converts comma-separated field declarations into typed fields,
// rejecting duplicate names within the list.
func parseFields(fieldStr string) ([]TypedField, error) {
	if fieldStr == "" {
		return nil, nil
	}

	parts := strings.Split(fieldStr, ",")
	fields := make([]TypedField, 0, len(parts))
	seen := make(map[string]bool, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		field := TypedField{Kind: KindString}
		if strings.Contains(part, ":") {
			fieldParts := strings.SplitN(part, ":", 2)
			field.Name = strings.TrimSpace(fieldParts[0])
			kind, err := parseKind(strings.TrimSpace(fieldParts[1]))
			if err != nil {
				return nil, err
			}
			field.Kind = kind
		} else {
			field.Name = part
		}

		if seen[field.Name] {
			return nil, fmt.Errorf("duplicate field %q", field.Name)
		}
		seen[field.Name] = true

		fields = append(fields, field)
	}

	return fields, nil
}

func parseKind(s string) (FieldKind, error) {
	switch s {
	case "", "str", "string":
		return KindString, nil
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "bool":
		return KindBool, nil
	case "list", "list[str]":
		return KindList, nil
	default:
		return KindString, fmt.Errorf("unknown field type %q", s)
	}
}

// generateName creates a name from the signature string
func generateName(sig string) string {
	name := strings.ReplaceAll(sig, "->", "_to_")
	name = strings.ReplaceAll(name, ",", "_")
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	name = strings.ReplaceAll(name, "[", "_")
	name = strings.ReplaceAll(name, "]", "_")
	return name
}

// InputFields returns the declared input fields in order
func (s Signature) InputFields() []TypedField {
	return s.inputs
}

// OutputFields returns the declared output fields in order
func (s Signature) OutputFields() []TypedField {
	return s.outputs
}

// ValidateInputs checks that every declared input is present. A missing input
// is a contract violation by the caller.
func (s Signature) ValidateInputs(inputs map[string]any) error {
	for _, f := range s.inputs {
		if _, ok := inputs[f.Name]; !ok {
			return fmt.Errorf("%w: %s (signature %s)", domain.ErrMissingInput, f.Name, s.Name)
		}
	}
	return nil
}

// CoerceOutputs checks that every declared output is present and
// kind-compatible, returning a copy with values coerced to their declared
// kinds. A missing output is a contract violation; a present but
// uncoercible value is a validation failure.
func (s Signature) CoerceOutputs(outputs map[string]any) (map[string]any, error) {
	coerced := make(map[string]any, len(s.outputs))
	for _, f := range s.outputs {
		v, ok := outputs[f.Name]
		if !ok {
			return nil, fmt.Errorf("%w: missing output %s (signature %s)", domain.ErrContractViolation, f.Name, s.Name)
		}
		cv, err := coerceValue(v, f.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: output %s: %v", domain.ErrValidationFailure, f.Name, err)
		}
		coerced[f.Name] = cv
	}
	return coerced, nil
}

func coerceValue(v any, kind FieldKind) (any, error) {
	switch kind {
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", v), nil
	case KindInt:
		switch t := v.(type) {
		case int:
			return t, nil
		case int64:
			return int(t), nil
		case float64:
			if t == float64(int(t)) {
				return int(t), nil
			}
			return nil, fmt.Errorf("value %v is not an integer", t)
		case string:
			i, err := strconv.Atoi(strings.TrimSpace(t))
			if err != nil {
				return nil, fmt.Errorf("value %q is not an integer", t)
			}
			return i, nil
		}
	case KindFloat:
		switch t := v.(type) {
		case float64:
			return t, nil
		case float32:
			return float64(t), nil
		case int:
			return float64(t), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
			if err != nil {
				return nil, fmt.Errorf("value %q is not a number", t)
			}
			return f, nil
		}
	case KindBool:
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(t))
			if err != nil {
				return nil, fmt.Errorf("value %q is not a bool", t)
			}
			return b, nil
		}
	case KindList:
		switch t := v.(type) {
		case []string:
			return t, nil
		case []any:
			items := make([]string, len(t))
			for i, item := range t {
				items[i] = fmt.Sprintf("%v", item)
			}
			return items, nil
		case string:
			return splitList(t), nil
		}
	}
	return nil, fmt.Errorf("value of type %T does not satisfy kind %s", v, kind)
}

// splitList parses a comma- or semicolon-separated string into trimmed items
func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';'
	})
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// Predefined signatures for the bundled pipelines
var (
	Summarize = MustParseSignature(
		"document -> summary",
	)

	SimpleQA = MustParseSignature(
		"question -> answer",
	)

	ExtractEntities = MustParseSignature(
		"text -> entities: list",
	)

	AnalyzeSentiment = MustParseSignature(
		"text -> sentiment",
	)

	ClassifyDocument = MustParseSignature(
		"document -> category, confidence_score",
	)
)
