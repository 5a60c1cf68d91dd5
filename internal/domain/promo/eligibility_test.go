package promo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestIsEligible(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := fixedNow.Add(-24 * time.Hour)
	future := fixedNow.Add(24 * time.Hour)

	base := Promotion{
		ID:     "promo-1",
		Status: StatusActive,
		Rules:  Rules{Actions: []Action{{Type: ActionPercentage, Value: NumberValue(decimal.NewFromInt(10))}}},
	}

	tests := []struct {
		name   string
		mutate func(*Promotion)
		ec     EvaluationContext
		want   bool
	}{
		{
			name:   "no constraints is eligible",
			mutate: func(*Promotion) {},
			want:   true,
		},
		{
			name: "inside validity window",
			mutate: func(p *Promotion) {
				p.ValidFrom = &past
				p.ValidTo = &future
			},
			want: true,
		},
		{
			name: "valid_to is inclusive",
			mutate: func(p *Promotion) {
				p.ValidTo = &fixedNow
			},
			want: true,
		},
		{
			name: "expired window fails",
			mutate: func(p *Promotion) {
				p.ValidTo = &past
			},
			want: false,
		},
		{
			name: "not yet started fails",
			mutate: func(p *Promotion) {
				p.ValidFrom = &future
			},
			want: false,
		},
		{
			name: "uses_remaining zero is never eligible",
			mutate: func(p *Promotion) {
				p.UsageLimits = &UsageLimits{UsesRemaining: intPtr(0)}
			},
			want: false,
		},
		{
			name: "uses_remaining positive passes",
			mutate: func(p *Promotion) {
				p.UsageLimits = &UsageLimits{UsesRemaining: intPtr(3)}
			},
			want: true,
		},
		{
			name: "uses_remaining absent is uncounted",
			mutate: func(p *Promotion) {
				p.UsageLimits = &UsageLimits{TotalUses: 100}
			},
			want: true,
		},
		{
			name: "per-customer limit reached",
			mutate: func(p *Promotion) {
				p.UsageLimits = &UsageLimits{PerCustomer: 2}
			},
			ec:   EvaluationContext{PreviousUses: 2},
			want: false,
		},
		{
			name: "per-customer limit not reached",
			mutate: func(p *Promotion) {
				p.UsageLimits = &UsageLimits{PerCustomer: 2}
			},
			ec:   EvaluationContext{PreviousUses: 1},
			want: true,
		},
		{
			name: "customer type restriction enforced when context supplies it",
			mutate: func(p *Promotion) {
				p.Eligibility = &Eligibility{CustomerTypes: []string{"vip"}}
			},
			ec:   EvaluationContext{CustomerType: "regular"},
			want: false,
		},
		{
			name: "customer type restriction skipped without context field",
			mutate: func(p *Promotion) {
				p.Eligibility = &Eligibility{CustomerTypes: []string{"vip"}}
			},
			ec:   EvaluationContext{},
			want: true,
		},
		{
			name: "segment overlap passes",
			mutate: func(p *Promotion) {
				p.Eligibility = &Eligibility{CustomerSegments: []string{"newsletter", "beta"}}
			},
			ec:   EvaluationContext{Segments: []string{"beta"}},
			want: true,
		},
		{
			name: "channel restriction enforced",
			mutate: func(p *Promotion) {
				p.Eligibility = &Eligibility{Channels: []string{"web"}}
			},
			ec:   EvaluationContext{Channel: "pos"},
			want: false,
		},
		{
			name: "region restriction enforced",
			mutate: func(p *Promotion) {
				p.Eligibility = &Eligibility{Regions: []string{"us", "ca"}}
			},
			ec:   EvaluationContext{Region: "ca"},
			want: true,
		},
		{
			name: "failing rule condition fails eligibility",
			mutate: func(p *Promotion) {
				p.Rules.Conditions = []Condition{
					{Type: ConditionCartSubtotal, Operator: OpGte, Value: NumberValue(decimal.NewFromInt(10000))},
				}
			},
			ec:   EvaluationContext{Subtotal: subtotal(5000)},
			want: false,
		},
		{
			name: "vacuous conditions pass regardless of context",
			mutate: func(p *Promotion) {
				p.Rules.Conditions = []Condition{}
			},
			ec:   EvaluationContext{},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			assert.Equal(t, tt.want, IsEligible(&p, tt.ec, fixedNow))
		})
	}
}

func TestIsEligibleRecoversFromPanic(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	// A promotion record that panics mid-evaluation must read as not
	// eligible, never abort the caller's loop.
	var p *Promotion
	assert.NotPanics(t, func() {
		assert.False(t, IsEligible(p, EvaluationContext{}, fixedNow))
	})
}
