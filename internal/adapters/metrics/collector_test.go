package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestModuleCollectorCountsOutcomes(t *testing.T) {
	c := NewModuleCollector("collector-test")

	c.RecordInvocation("predict.email", map[string]any{"email": "x"}, map[string]any{"summary": "s"}, nil)
	c.RecordInvocation("predict.email", nil, nil, nil)
	c.RecordInvocation("predict.email", nil, nil, errors.New("backend down"))

	ok := testutil.ToFloat64(ModuleInvocationsTotal.WithLabelValues("collector-test", "predict.email", "ok"))
	if ok != 2 {
		t.Errorf("ok invocations = %v, want 2", ok)
	}
	failed := testutil.ToFloat64(ModuleInvocationsTotal.WithLabelValues("collector-test", "predict.email", "error"))
	if failed != 1 {
		t.Errorf("error invocations = %v, want 1", failed)
	}
}
