package promo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// AppliedPromotion is one promotion that survived the full pipeline, with the
// discount it contributes and a display line for the storefront.
type AppliedPromotion struct {
	Promotion Promotion
	Discount  decimal.Decimal
	Display   string
}

// Result summarizes one engine run over a cart.
type Result struct {
	// Promotions is the applicable set after stacking resolution, in
	// application order.
	Promotions []Promotion
	// TotalDiscount is the sum of all applied discounts, minor units.
	TotalDiscount decimal.Decimal
	Applied       []AppliedPromotion
}

// Engine composes the evaluation pipeline: fetch active promotions, filter by
// eligibility, resolve stacking, compute discounts, aggregate.
type Engine struct {
	promotions Repository
	now        func() time.Time
}

// NewEngine creates an Engine backed by the given promotion repository.
func NewEngine(promotions Repository) *Engine {
	return &Engine{promotions: promotions, now: time.Now}
}

// Apply fetches the currently active promotions and evaluates them against
// the context.
func (e *Engine) Apply(ctx context.Context, ec EvaluationContext) (*Result, error) {
	promos, err := e.promotions.ListActive(ctx, e.now())
	if err != nil {
		return nil, errors.Wrap(err, "list active promotions")
	}
	return e.Evaluate(promos, ec), nil
}

// Evaluate runs the pure pipeline over an already-fetched promotion set.
// For a fixed (promotions, context) input the output is identical across
// calls; nothing in the pipeline mutates its inputs or depends on clock
// reads beyond the single now() taken up front.
func (e *Engine) Evaluate(promos []Promotion, ec EvaluationContext) *Result {
	now := e.now()

	var eligible []Promotion
	for _, p := range promos {
		if p.Status != StatusActive {
			continue
		}
		if IsEligible(&p, ec, now) {
			eligible = append(eligible, p)
		}
	}

	applicable := ResolveStacking(eligible)

	result := &Result{
		Promotions:    applicable,
		TotalDiscount: decimal.Zero,
	}
	for _, p := range applicable {
		// Re-verify eligibility before granting the discount. A promotion
		// that fails here contributes zero instead of erroring.
		if !IsEligible(&p, ec, now) {
			continue
		}

		amount := CalculateDiscount(p.Rules.Actions, ec)
		result.TotalDiscount = result.TotalDiscount.Add(amount)
		result.Applied = append(result.Applied, AppliedPromotion{
			Promotion: p,
			Discount:  amount,
			Display:   displayLine(p, amount, ec.Locale),
		})
	}
	return result
}

func displayLine(p Promotion, amount decimal.Decimal, locale string) string {
	name := p.Name.Resolve(locale)
	if name == "" {
		name = p.ID
	}
	return fmt.Sprintf("%s (-%s)", name, FormatAmount(amount))
}

// FormatAmount renders an amount held in minor units as a currency string.
func FormatAmount(minorUnits decimal.Decimal) string {
	return "$" + minorUnits.Div(hundred).StringFixed(2)
}
