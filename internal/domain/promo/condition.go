package promo

import "github.com/shopspring/decimal"

// ConditionType names a gating rule the evaluator understands.
type ConditionType string

const (
	ConditionCartSubtotal    ConditionType = "cart_subtotal"
	ConditionProductCategory ConditionType = "product_category"
	ConditionFirstPurchase   ConditionType = "first_purchase"
)

// Operator compares a context field against a condition value.
type Operator string

const (
	OpEquals Operator = "equals"
	OpGte    Operator = "gte"
	OpLte    Operator = "lte"
	OpGt     Operator = "gt"
	OpLt     Operator = "lt"
	OpIn     Operator = "in"
)

// EvaluateConditions reports whether every condition holds for the context.
// An empty or nil list is vacuously satisfied. There is no OR combinator:
// any-of semantics are expressed with the in operator over a list value.
func EvaluateConditions(conds []Condition, ec EvaluationContext) bool {
	for _, c := range conds {
		if !evaluateCondition(c, ec) {
			return false
		}
	}
	return true
}

func evaluateCondition(c Condition, ec EvaluationContext) bool {
	switch c.Type {
	case ConditionCartSubtotal:
		if ec.Subtotal == nil {
			return false
		}
		threshold, ok := c.Value.Amount()
		if !ok {
			return false
		}
		return compareAmount(*ec.Subtotal, c.Operator, threshold)

	case ConditionProductCategory:
		if len(ec.Items) == 0 {
			return false
		}
		return matchCategory(c, ec.Items)

	case ConditionFirstPurchase:
		want, ok := c.Value.Bool()
		if !ok {
			return false
		}
		return ec.FirstPurchase == want

	default:
		// Unknown condition types pass; unknown actions grant nothing, so a
		// newer rule vocabulary cannot over-deliver discounts here.
		return true
	}
}

func compareAmount(got decimal.Decimal, op Operator, want decimal.Decimal) bool {
	cmp := got.Cmp(want)
	switch op {
	case OpEquals:
		return cmp == 0
	case OpGte:
		return cmp >= 0
	case OpLte:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpLt:
		return cmp < 0
	default:
		return false
	}
}

// matchCategory checks the categories present in the cart against the
// condition value: equals requires a cart category matching the single value,
// in requires a cart category appearing in the value list.
func matchCategory(c Condition, items []CartItem) bool {
	wanted := c.Value.Strings()
	if len(wanted) == 0 {
		return false
	}

	switch c.Operator {
	case OpEquals, OpIn:
		for _, item := range items {
			for _, w := range wanted {
				if item.Category == w {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}
