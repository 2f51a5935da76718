package prompt

import (
	"errors"
	"testing"

	"github.com/loomery/loom/internal/domain"
)

func TestParseSignature(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "simple signature",
			input:   "question -> answer",
			wantErr: false,
		},
		{
			name:    "multiple inputs and outputs",
			input:   "summary, sentiment, priority -> response",
			wantErr: false,
		},
		{
			name:    "with types",
			input:   "document -> summary: str, word_count: int",
			wantErr: false,
		},
		{
			name:    "list output",
			input:   "text -> entities: list",
			wantErr: false,
		},
		{
			name:    "no arrow",
			input:   "question",
			wantErr: true,
		},
		{
			name:    "empty outputs",
			input:   "question -> ",
			wantErr: true,
		},
		{
			name:    "duplicate input field",
			input:   "text, text -> entities",
			wantErr: true,
		},
		{
			name:    "duplicate output field",
			input:   "document -> summary, summary: int",
			wantErr: true,
		},
		{
			name:    "unknown type",
			input:   "document -> summary: blob",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := ParseSignature(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseSignature() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && sig.Name == "" {
				t.Errorf("ParseSignature() returned signature with empty name")
			}
		})
	}
}

func TestParseSignatureKinds(t *testing.T) {
	sig := MustParseSignature("document -> summary: str, word_count: int, confidence: float, entities: list")

	outs := sig.OutputFields()
	if len(outs) != 4 {
		t.Fatalf("OutputFields() len = %d, want 4", len(outs))
	}
	wantKinds := []FieldKind{KindString, KindInt, KindFloat, KindList}
	for i, f := range outs {
		if f.Kind != wantKinds[i] {
			t.Errorf("field %s kind = %v, want %v", f.Name, f.Kind, wantKinds[i])
		}
	}
}

func TestMustParseSignaturePanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("MustParseSignature() did not panic on invalid signature")
		}
	}()

	_ = MustParseSignature("invalid")
}

func TestValidateInputs(t *testing.T) {
	sig := MustParseSignature("summary, sentiment -> priority")

	if err := sig.ValidateInputs(map[string]any{"summary": "S", "sentiment": "negative"}); err != nil {
		t.Errorf("ValidateInputs() error = %v, want nil", err)
	}

	err := sig.ValidateInputs(map[string]any{"summary": "S"})
	if !errors.Is(err, domain.ErrMissingInput) {
		t.Errorf("ValidateInputs() error = %v, want ErrMissingInput", err)
	}
}

func TestCoerceOutputs(t *testing.T) {
	sig := MustParseSignature("document -> summary: str, word_count: int")

	tests := []struct {
		name     string
		outputs  map[string]any
		wantErr  error
		wantWord int
	}{
		{
			name:     "valid typed outputs",
			outputs:  map[string]any{"summary": "S", "word_count": 3},
			wantWord: 3,
		},
		{
			name:     "int given as string",
			outputs:  map[string]any{"summary": "S", "word_count": "12"},
			wantWord: 12,
		},
		{
			name:    "missing declared output",
			outputs: map[string]any{"summary": "S"},
			wantErr: domain.ErrContractViolation,
		},
		{
			name:    "uncoercible value",
			outputs: map[string]any{"summary": "S", "word_count": "many"},
			wantErr: domain.ErrValidationFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coerced, err := sig.CoerceOutputs(tt.outputs)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("CoerceOutputs() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CoerceOutputs() error = %v", err)
			}
			if coerced["word_count"] != tt.wantWord {
				t.Errorf("word_count = %v, want %d", coerced["word_count"], tt.wantWord)
			}
		})
	}
}

func TestCoerceListOutput(t *testing.T) {
	sig := MustParseSignature("text -> entities: list")

	coerced, err := sig.CoerceOutputs(map[string]any{"entities": "customer, product; issue"})
	if err != nil {
		t.Fatalf("CoerceOutputs() error = %v", err)
	}

	items, ok := coerced["entities"].([]string)
	if !ok {
		t.Fatalf("entities type = %T, want []string", coerced["entities"])
	}
	want := []string{"customer", "product", "issue"}
	if len(items) != len(want) {
		t.Fatalf("entities = %v, want %v", items, want)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("entities[%d] = %q, want %q", i, items[i], want[i])
		}
	}
}

func TestPredefinedSignatures(t *testing.T) {
	signatures := []struct {
		name string
		sig  Signature
	}{
		{"Summarize", Summarize},
		{"SimpleQA", SimpleQA},
		{"ExtractEntities", ExtractEntities},
		{"AnalyzeSentiment", AnalyzeSentiment},
		{"ClassifyDocument", ClassifyDocument},
	}

	for _, tt := range signatures {
		t.Run(tt.name, func(t *testing.T) {
			if tt.sig.Name == "" {
				t.Errorf("%s has empty name", tt.name)
			}
			if len(tt.sig.InputFields()) == 0 {
				t.Errorf("%s has no inputs", tt.name)
			}
			if len(tt.sig.OutputFields()) == 0 {
				t.Errorf("%s has no outputs", tt.name)
			}
		})
	}
}
