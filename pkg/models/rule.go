package models

// ConditionOperator is the comparison applied between a resolved fact value
// and a condition's literal value.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorNotContains ConditionOperator = "not_contains"
	OperatorStartsWith  ConditionOperator = "starts_with"
	OperatorEndsWith    ConditionOperator = "ends_with"
)

// SubstringOperators require the fact value to support substring semantics.
var SubstringOperators = []ConditionOperator{
	OperatorContains,
	OperatorNotContains,
	OperatorStartsWith,
	OperatorEndsWith,
}

// Condition is a leaf of the rule tree: one fact compared against one value.
type Condition struct {
	Fact     EntityReference   `json:"fact"     validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required"`
	Value    any               `json:"value"`
}

// GroupOperator combines the results of a rule group's members.
type GroupOperator string

const (
	GroupOperatorAnd GroupOperator = "AND"
	GroupOperatorOr  GroupOperator = "OR"
)

// RuleGroup is a node in the rule tree. The tree has exactly one root
// (ParentGroupID == nil); acyclicity is enforced at write time and assumed
// during evaluation.
type RuleGroup struct {
	ID            string        `json:"id"`
	Operator      GroupOperator `json:"operator"        validate:"required,oneof=AND OR"`
	ParentGroupID *string       `json:"parent_group_id,omitempty"`
	Conditions    []Condition   `json:"conditions"`
	ChildGroups   []*RuleGroup  `json:"child_groups"`
}

// References returns every entity reference used by this group and its
// descendants, in tree order.
func (g *RuleGroup) References() []EntityReference {
	if g == nil {
		return nil
	}

	refs := make([]EntityReference, 0, len(g.Conditions))
	for _, c := range g.Conditions {
		refs = append(refs, c.Fact)
	}

	for _, child := range g.ChildGroups {
		refs = append(refs, child.References()...)
	}

	return refs
}

// IsEmpty reports whether the group has neither conditions nor child groups.
func (g *RuleGroup) IsEmpty() bool {
	return g == nil || (len(g.Conditions) == 0 && len(g.ChildGroups) == 0)
}
