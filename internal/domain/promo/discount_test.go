package promo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCalculateDiscount(t *testing.T) {
	tests := []struct {
		name    string
		actions []Action
		ec      EvaluationContext
		want    decimal.Decimal
	}{
		{
			name: "percentage 20% of 15000 cents",
			actions: []Action{
				{Type: ActionPercentage, Value: NumberValue(d("20")), ApplyTo: "cart_subtotal"},
			},
			ec:   EvaluationContext{Subtotal: subtotal(15000)},
			want: d("3000"),
		},
		{
			name: "percentage requires a bare number",
			actions: []Action{
				{Type: ActionPercentage, Value: MoneyValue(d("20"), "USD")},
			},
			ec:   EvaluationContext{Subtotal: subtotal(15000)},
			want: d("0"),
		},
		{
			name: "fixed discount",
			actions: []Action{
				{Type: ActionFixed, Value: MoneyValue(d("500"), "USD")},
			},
			ec:   EvaluationContext{Subtotal: subtotal(15000)},
			want: d("500"),
		},
		{
			name: "fixed discount clamped to subtotal",
			actions: []Action{
				{Type: ActionFixed, Value: MoneyValue(d("20000"), "USD")},
			},
			ec:   EvaluationContext{Subtotal: subtotal(15000)},
			want: d("15000"),
		},
		{
			name: "multiple actions sum",
			actions: []Action{
				{Type: ActionPercentage, Value: NumberValue(d("10"))},
				{Type: ActionFixed, Value: MoneyValue(d("250"), "USD")},
			},
			ec:   EvaluationContext{Subtotal: subtotal(10000)},
			want: d("1250"),
		},
		{
			name: "unknown action type contributes zero",
			actions: []Action{
				{Type: ActionType("mystery_discount"), Value: NumberValue(d("50"))},
				{Type: ActionPercentage, Value: NumberValue(d("10"))},
			},
			ec:   EvaluationContext{Subtotal: subtotal(10000)},
			want: d("1000"),
		},
		{
			name: "bogo and item-level actions accepted, contribute zero",
			actions: []Action{
				{Type: ActionBOGO},
				{Type: ActionItemPercentage, Value: NumberValue(d("50"))},
				{Type: ActionItemFixed, Value: MoneyValue(d("100"), "USD")},
			},
			ec:   EvaluationContext{Subtotal: subtotal(10000)},
			want: d("0"),
		},
		{
			name: "shipping actions contribute zero to the cart total",
			actions: []Action{
				{Type: ActionShippingPercent, Value: NumberValue(d("100"))},
			},
			ec:   EvaluationContext{Subtotal: subtotal(10000)},
			want: d("0"),
		},
		{
			name: "missing subtotal computes against zero",
			actions: []Action{
				{Type: ActionPercentage, Value: NumberValue(d("20"))},
			},
			ec:   EvaluationContext{},
			want: d("0"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateDiscount(tt.actions, tt.ec)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestTieredDiscount(t *testing.T) {
	tiers := []Tier{
		{MinValue: NumberValue(d("5000")), DiscountType: TierPercentage, DiscountValue: NumberValue(d("10"))},
		{MinValue: NumberValue(d("10000")), DiscountType: TierPercentage, DiscountValue: NumberValue(d("15"))},
		{MinValue: NumberValue(d("20000")), DiscountType: TierPercentage, DiscountValue: NumberValue(d("20"))},
	}
	action := []Action{{Type: ActionTiered, Tiers: tiers}}

	tests := []struct {
		name     string
		subtotal string
		want     string
	}{
		{"below the 10000 boundary selects the 10% tier", "9999", "1000"}, // 9999 * 10% = 999.9, rounds to 1000
		{"at the 10000 boundary selects the 15% tier (inclusive)", "10000", "1500"},
		{"above the top tier", "25000", "5000"},
		{"below every tier contributes zero", "4999", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := EvaluationContext{Subtotal: subtotal(int64(d(tt.subtotal).IntPart()))}
			got := CalculateDiscount(action, ec)
			assert.True(t, d(tt.want).Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestTieredDiscountUnorderedTiersAndFixed(t *testing.T) {
	// Tier order in the list must not matter; the highest reachable
	// min_value wins.
	tiers := []Tier{
		{MinValue: MoneyValue(d("20000"), "USD"), DiscountType: TierFixed, DiscountValue: NumberValue(d("5000"))},
		{MinValue: NumberValue(d("5000")), DiscountType: TierFixed, DiscountValue: NumberValue(d("500"))},
	}
	ec := EvaluationContext{Subtotal: subtotal(30000)}

	got := CalculateDiscount([]Action{{Type: ActionTiered, Tiers: tiers}}, ec)
	assert.True(t, d("5000").Equal(got), "expected 5000, got %s", got)
}

func TestShippingAction(t *testing.T) {
	free := Action{Type: ActionShippingPercent, Value: NumberValue(d("100"))}
	half := Action{Type: ActionShippingPercent, Value: NumberValue(d("50"))}
	fixed := Action{Type: ActionShippingFixed, Value: MoneyValue(d("500"), "USD")}

	a, ok := ShippingAction([]Action{{Type: ActionPercentage, Value: NumberValue(d("10"))}, free})
	assert.True(t, ok)
	assert.True(t, IsFreeShipping(a))

	assert.False(t, IsFreeShipping(half))
	assert.False(t, IsFreeShipping(fixed))

	_, ok = ShippingAction([]Action{{Type: ActionPercentage, Value: NumberValue(d("10"))}})
	assert.False(t, ok)
}
