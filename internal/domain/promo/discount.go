package promo

import "github.com/shopspring/decimal"

// ActionType names a discount contribution the calculator understands.
type ActionType string

const (
	ActionPercentage      ActionType = "percentage_discount"
	ActionFixed           ActionType = "fixed_discount"
	ActionTiered          ActionType = "tiered_discount"
	ActionShippingPercent ActionType = "shipping_percentage_discount"
	ActionShippingFixed   ActionType = "shipping_fixed_discount"
	ActionBOGO            ActionType = "bogo_discount"
	ActionItemPercentage  ActionType = "item_percentage_discount"
	ActionItemFixed       ActionType = "item_fixed_discount"
)

const (
	// TierPercentage applies a tier as percentage of subtotal.
	TierPercentage = "percentage"
	// TierFixed applies a tier as a flat amount.
	TierFixed = "fixed"
)

// FreeShippingAmount is the wire sentinel storefronts read as "shipping is
// free" in place of a real monetary amount, kept for compatibility with the
// existing checkout convention.
var FreeShippingAmount = decimal.NewFromInt(999999)

var hundred = decimal.NewFromInt(100)

// CalculateDiscount sums the discount contribution of every action, in minor
// currency units. An action that cannot be computed (wrong value shape,
// unknown type) contributes zero rather than failing the whole calculation:
// under-discounting is the safe direction. Shipping actions also contribute
// zero here because shipping cost is unknown at this stage; callers that need
// them use ShippingAction.
func CalculateDiscount(actions []Action, ec EvaluationContext) decimal.Decimal {
	total := decimal.Zero
	for _, a := range actions {
		total = total.Add(actionDiscount(a, ec))
	}
	return total
}

func actionDiscount(a Action, ec EvaluationContext) decimal.Decimal {
	subtotal := ec.SubtotalOrZero()

	switch a.Type {
	case ActionPercentage:
		pct, ok := a.Value.Number()
		if !ok {
			return decimal.Zero
		}
		return percentageOf(subtotal, pct)

	case ActionFixed:
		amount, ok := a.Value.Amount()
		if !ok {
			return decimal.Zero
		}
		// A fixed discount never exceeds the subtotal.
		return floorAtZero(decimal.Min(amount, subtotal))

	case ActionTiered:
		return tieredDiscount(a.Tiers, subtotal)

	case ActionShippingPercent, ActionShippingFixed:
		return decimal.Zero

	case ActionBOGO, ActionItemPercentage, ActionItemFixed:
		// Recognized vocabulary; application needs cart line identity
		// resolution that happens further down the checkout pipeline.
		return decimal.Zero

	default:
		return decimal.Zero
	}
}

// tieredDiscount selects the tier with the highest min_value that the
// subtotal reaches (boundary inclusive) and applies it.
func tieredDiscount(tiers []Tier, subtotal decimal.Decimal) decimal.Decimal {
	var (
		best    *Tier
		bestMin decimal.Decimal
	)
	for i := range tiers {
		min, ok := tiers[i].MinValue.Amount()
		if !ok {
			continue
		}
		if min.GreaterThan(subtotal) {
			continue
		}
		if best == nil || min.GreaterThan(bestMin) {
			best = &tiers[i]
			bestMin = min
		}
	}
	if best == nil {
		return decimal.Zero
	}

	value, ok := best.DiscountValue.Amount()
	if !ok {
		return decimal.Zero
	}

	switch best.DiscountType {
	case TierPercentage:
		return percentageOf(subtotal, value)
	case TierFixed:
		return floorAtZero(decimal.Min(value, subtotal))
	default:
		return decimal.Zero
	}
}

// ShippingAction returns the first shipping action in the list, if any.
// A shipping percentage of exactly 100 means free shipping; the validation
// boundary signals that with FreeShippingAmount instead of a dollar figure.
func ShippingAction(actions []Action) (Action, bool) {
	for _, a := range actions {
		if a.Type == ActionShippingPercent || a.Type == ActionShippingFixed {
			return a, true
		}
	}
	return Action{}, false
}

// IsFreeShipping reports whether the action grants shipping entirely free.
func IsFreeShipping(a Action) bool {
	if a.Type != ActionShippingPercent {
		return false
	}
	pct, ok := a.Value.Amount()
	return ok && pct.Equal(hundred)
}

func percentageOf(subtotal, pct decimal.Decimal) decimal.Decimal {
	return floorAtZero(subtotal.Mul(pct).Div(hundred).Round(0))
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
