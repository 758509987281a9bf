package sceneengine

import (
	"fmt"

	"github.com/prompthub/prompthub/pkg/models"
)

// evaluateCondition applies a step's three-term predicate against its
// merged variable scope. An unset variable satisfies only exists=false /
// not_exists=true style checks.
func evaluateCondition(cond *models.Condition, scope map[string]any) (bool, error) {
	if cond == nil {
		return true, nil
	}

	actual, present := scope[cond.Variable]

	switch cond.Operator {
	case models.OpExists:
		return present, nil
	case models.OpNotExists:
		return !present, nil
	}

	if !present {
		// Every remaining operator requires a value to compare against.
		return false, nil
	}

	switch cond.Operator {
	case models.OpEq:
		return looseEqual(actual, cond.Value), nil
	case models.OpNeq:
		return !looseEqual(actual, cond.Value), nil
	case models.OpIn:
		return memberOf(actual, cond.Value), nil
	case models.OpNotIn:
		return !memberOf(actual, cond.Value), nil
	case models.OpGt, models.OpGte, models.OpLt, models.OpLte:
		return compareNumeric(actual, cond.Value, cond.Operator)
	default:
		return false, fmt.Errorf("unknown condition operator %q", cond.Operator)
	}
}

func looseEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func memberOf(v, list any) bool {
	items, ok := list.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if looseEqual(v, item) {
			return true
		}
	}
	return false
}

func compareNumeric(a, b any, op models.ConditionOperator) (bool, error) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return false, fmt.Errorf("operator %q requires numeric operands", op)
	}
	switch op {
	case models.OpGt:
		return af > bf, nil
	case models.OpGte:
		return af >= bf, nil
	case models.OpLt:
		return af < bf, nil
	case models.OpLte:
		return af <= bf, nil
	}
	return false, fmt.Errorf("unreachable operator %q", op)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
