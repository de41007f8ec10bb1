package rules

import (
	"errors"
	"fmt"
	"slices"

	"github.com/deskflow/deskflow/pkg/models"
)

var (
	ErrRootHasParent     = errors.New("root rule group cannot have a parent")
	ErrUnknownOperator   = errors.New("unknown group operator")
	ErrUnknownComparison = errors.New("unknown condition operator")
	ErrParentMismatch    = errors.New("child group parent does not match enclosing group")
)

var conditionOperators = []models.ConditionOperator{
	models.OperatorEquals,
	models.OperatorNotEquals,
	models.OperatorContains,
	models.OperatorNotContains,
	models.OperatorStartsWith,
	models.OperatorEndsWith,
}

// ValidateTree checks the write-time invariants of a rule tree: exactly one
// root, parent links consistent with nesting, known operators, and entity
// references that satisfy their tagged-union invariants. Evaluation assumes
// these hold.
func ValidateTree(root *models.RuleGroup) error {
	if root == nil {
		return nil
	}

	if root.ParentGroupID != nil {
		return ErrRootHasParent
	}

	return validateGroup(root)
}

func validateGroup(group *models.RuleGroup) error {
	if group.Operator != models.GroupOperatorAnd && group.Operator != models.GroupOperatorOr {
		return fmt.Errorf("%w: %q in group %s", ErrUnknownOperator, group.Operator, group.ID)
	}

	for i, cond := range group.Conditions {
		if !slices.Contains(conditionOperators, cond.Operator) {
			return fmt.Errorf("%w: %q in group %s condition %d", ErrUnknownComparison, cond.Operator, group.ID, i)
		}

		if err := cond.Fact.Validate(); err != nil {
			return fmt.Errorf("group %s condition %d: %w", group.ID, i, err)
		}
	}

	for _, child := range group.ChildGroups {
		if child.ParentGroupID == nil || *child.ParentGroupID != group.ID {
			return fmt.Errorf("%w: group %s", ErrParentMismatch, child.ID)
		}

		if err := validateGroup(child); err != nil {
			return err
		}
	}

	return nil
}
