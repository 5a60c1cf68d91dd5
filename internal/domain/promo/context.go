package promo

import "github.com/shopspring/decimal"

// CartItem is one cart line as seen by the evaluator. Price is the unit price
// in minor currency units.
type CartItem struct {
	ProductID string
	Category  string
	Price     decimal.Decimal
	Quantity  int
}

// EvaluationContext carries the request-scoped cart and customer data a
// promotion is evaluated against. It is never persisted; the evaluator,
// eligibility checker and discount calculator are pure functions of
// (Promotion, EvaluationContext).
type EvaluationContext struct {
	CustomerID   string
	CustomerType string
	Segments     []string
	Channel      string
	Region       string

	// Subtotal is the cart subtotal in minor units. Nil means the caller did
	// not supply one; subtotal conditions then fail rather than error.
	Subtotal *decimal.Decimal
	Items    []CartItem

	FirstPurchase bool
	// PreviousUses is how many times this customer already used the
	// promotion under evaluation.
	PreviousUses int

	// Locale selects the display language for applied-promotion summaries.
	Locale string
}

// SubtotalOrZero returns the cart subtotal, or zero when none was supplied.
func (ec EvaluationContext) SubtotalOrZero() decimal.Decimal {
	if ec.Subtotal == nil {
		return decimal.Zero
	}
	return *ec.Subtotal
}
