package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/loomery/loom/internal/domain"
)

type recordingMetrics struct {
	invocations []string
	lastErr     error
}

func (m *recordingMetrics) RecordInvocation(module string, inputs, outputs map[string]any, err error) {
	m.invocations = append(m.invocations, module)
	m.lastErr = err
}

func TestTransformInvoke(t *testing.T) {
	sig := MustParseSignature("summary -> word_count: int")
	wordCount := NewTransform(sig, func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
		s, _ := inputs["summary"].(string)
		return map[string]any{"word_count": len(strings.Fields(s))}, nil
	})

	outputs, err := wordCount.Invoke(context.Background(), map[string]any{"summary": "three short words"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if outputs["word_count"] != 3 {
		t.Errorf("word_count = %v, want 3", outputs["word_count"])
	}
}

func TestTransformIdempotent(t *testing.T) {
	sig := MustParseSignature("summary -> word_count: int")
	wordCount := NewTransform(sig, func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
		s, _ := inputs["summary"].(string)
		return map[string]any{"word_count": len(strings.Fields(s))}, nil
	})

	inputs := map[string]any{"summary": "one two"}
	first, err := wordCount.Invoke(context.Background(), inputs)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	second, err := wordCount.Invoke(context.Background(), inputs)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if first["word_count"] != second["word_count"] {
		t.Errorf("repeated invocations differ: %v vs %v", first, second)
	}
}

func TestTransformWrapsErrors(t *testing.T) {
	sig := MustParseSignature("a -> b")
	boom := errors.New("boom")
	failing := NewTransform(sig, func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
		return nil, boom
	})

	_, err := failing.Invoke(context.Background(), map[string]any{"a": "x"})
	if !errors.Is(err, domain.ErrExecutionFailure) {
		t.Errorf("Invoke() error = %v, want ErrExecutionFailure", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Invoke() error = %v, want wrapped cause", err)
	}
}

func TestModuleVariantsExposeSignature(t *testing.T) {
	sig := MustParseSignature("question -> answer")

	var mods []Module = []Module{
		NewPredict(sig),
		NewChainOfThought(sig),
		NewTransform(sig, func(ctx context.Context, in map[string]any) (map[string]any, error) {
			return map[string]any{"answer": "42"}, nil
		}),
	}

	for _, m := range mods {
		got := m.Signature()
		if got.Name != sig.Name {
			t.Errorf("Signature().Name = %q, want %q", got.Name, sig.Name)
		}
	}
}

func TestInvokeWithHooksRecordsMetrics(t *testing.T) {
	collector := &recordingMetrics{}
	h := hooks{metrics: collector}

	_, err := invokeWithHooks(context.Background(), "test.module", h, map[string]any{"q": "x"},
		func(ctx context.Context) (map[string]any, error) {
			return map[string]any{"a": "y"}, nil
		})
	if err != nil {
		t.Fatalf("invokeWithHooks() error = %v", err)
	}

	if len(collector.invocations) != 1 || collector.invocations[0] != "test.module" {
		t.Errorf("invocations = %v, want [test.module]", collector.invocations)
	}

	boom := errors.New("boom")
	_, err = invokeWithHooks(context.Background(), "test.module", h, nil,
		func(ctx context.Context) (map[string]any, error) {
			return nil, boom
		})
	if !errors.Is(err, domain.ErrExecutionFailure) {
		t.Errorf("invokeWithHooks() error = %v, want ErrExecutionFailure", err)
	}
	if !errors.Is(collector.lastErr, boom) {
		t.Errorf("collector saw %v, want boom", collector.lastErr)
	}
}
