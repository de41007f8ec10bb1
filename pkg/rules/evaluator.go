// Package rules evaluates nested AND/OR condition trees against resolved
// facts. Evaluation is a pure function with no I/O and no caching.
package rules

import (
	"fmt"
	"strings"

	"github.com/deskflow/deskflow/pkg/facts"
	"github.com/deskflow/deskflow/pkg/models"
)

// Evaluate reports whether the rule group matches the facts. An empty AND
// group is true and an empty OR group is false (identity elements), so a
// workflow with no rules always matches. A nil group always matches.
func Evaluate(group *models.RuleGroup, f facts.Facts) bool {
	if group == nil {
		return true
	}

	switch group.Operator {
	case models.GroupOperatorOr:
		for _, cond := range group.Conditions {
			if evaluateCondition(cond, f) {
				return true
			}
		}

		for _, child := range group.ChildGroups {
			if Evaluate(child, f) {
				return true
			}
		}

		return false
	default: // AND, the write-time default
		for _, cond := range group.Conditions {
			if !evaluateCondition(cond, f) {
				return false
			}
		}

		for _, child := range group.ChildGroups {
			if !Evaluate(child, f) {
				return false
			}
		}

		return true
	}
}

// evaluateCondition applies one condition against the namespace. A missing or
// null fact evaluates false regardless of operator; operator application
// never panics on type mismatch, it falls back to string comparison. A single
// malformed rule must never abort evaluation of sibling rules.
func evaluateCondition(cond models.Condition, f facts.Facts) bool {
	factValue := f.Lookup(cond.Fact)
	if factValue == nil {
		return false
	}

	fact := stringify(factValue)
	want := stringify(cond.Value)

	switch cond.Operator {
	case models.OperatorEquals:
		return fact == want
	case models.OperatorNotEquals:
		return fact != want
	case models.OperatorContains:
		return strings.Contains(fact, want)
	case models.OperatorNotContains:
		return !strings.Contains(fact, want)
	case models.OperatorStartsWith:
		return strings.HasPrefix(fact, want)
	case models.OperatorEndsWith:
		return strings.HasSuffix(fact, want)
	default:
		return false
	}
}

// stringify coerces scalars to their comparison form. Floats that carry
// integral values print without a fraction so JSON-decoded numbers compare
// equal to their integer literals.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}

		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
