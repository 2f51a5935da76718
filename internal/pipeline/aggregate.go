package pipeline

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/loomery/loom/internal/domain"
)

var structValidator = validator.New()

// assembleOutput builds the structured result of a fully succeeded run. With
// an Output func the pipeline author shapes the result themselves, typically
// into a tagged struct, which is then validated. Without one, the final
// stages' outputs are returned keyed by stage name.
func assembleOutput(p *Pipeline, result *RunResult) (any, error) {
	finals := p.FinalStages()
	outputs := make(map[string]map[string]any, len(finals))
	for _, name := range finals {
		sr, ok := result.Stages[name]
		if !ok || sr.Status != StageSucceeded {
			return nil, fmt.Errorf("%w: final stage %s did not succeed", domain.ErrAggregation, name)
		}
		outputs[name] = sr.Outputs
	}

	if p.output == nil {
		return outputs, nil
	}

	assembled, err := p.output(outputs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAggregation, err)
	}
	if err := validateAssembled(assembled); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAggregation, err)
	}
	return assembled, nil
}

// validateAssembled applies struct tag validation when the assembled value
// is a struct or points to one. Other shapes pass through untouched.
func validateAssembled(v any) error {
	if v == nil {
		return fmt.Errorf("output func returned nil")
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return fmt.Errorf("output func returned nil pointer")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	return structValidator.Struct(rv.Interface())
}
