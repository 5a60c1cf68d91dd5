package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/oakmart/promo-engine/internal/domain/promo"
)

// PromotionSource provides the promotions a code lookup searches: active,
// code-activated promotions with their code material populated (the static
// code plus any generated instance codes).
type PromotionSource interface {
	ListCodeActivated(ctx context.Context) ([]promo.Promotion, error)
}

// Resolver maps a user-supplied code string to the promotion it activates.
type Resolver struct {
	promotions PromotionSource
	now        func() time.Time
}

// NewResolver creates a Resolver backed by the given promotion source.
func NewResolver(promotions PromotionSource) *Resolver {
	return &Resolver{promotions: promotions, now: time.Now}
}

// ResolveCode finds the active, code-activated promotion whose static code or
// generated instance codes match the supplied code, case-insensitively.
//
// When an evaluation context is supplied, an ineligible promotion resolves to
// ErrNotFound exactly like an unknown code: the public surface does not leak
// which promotions exist versus which are merely out of reach. Callers that
// need the distinction (admin tooling) pass a nil context and run the
// eligibility check themselves.
func (r *Resolver) ResolveCode(ctx context.Context, code string, ec *promo.EvaluationContext) (*promo.Promotion, error) {
	if code == "" {
		return nil, ErrNotFound
	}

	promotions, err := r.promotions.ListCodeActivated(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list code-activated promotions")
	}

	for n := range promotions {
		p := &promotions[n]
		if p.Status != promo.StatusActive || p.Activation != promo.ActivationCode {
			continue
		}
		if !MatchesCode(p, code) {
			continue
		}
		if ec != nil && !promo.IsEligible(p, *ec, r.now()) {
			return nil, ErrNotFound
		}
		return p, nil
	}
	return nil, ErrNotFound
}

// MatchesCode reports whether the code equals the promotion's static code or
// appears among its generated instance codes, ignoring case.
func MatchesCode(p *promo.Promotion, code string) bool {
	if p.Codes == nil {
		return false
	}
	if p.Codes.Single != "" && strings.EqualFold(p.Codes.Single, code) {
		return true
	}
	for _, generated := range p.Codes.Generated {
		if strings.EqualFold(generated, code) {
			return true
		}
	}
	return false
}
