package promo

import (
	"slices"
	"time"
)

// IsEligible reports whether the promotion may apply to the given context,
// independent of what discount it would grant. Four sub-checks must all pass:
// time window, usage limits, audience rules, then the rule conditions.
//
// A panic while evaluating (a malformed record in an interface-typed field,
// for instance) marks the promotion not eligible instead of propagating, so
// one broken promotion cannot abort evaluation of its siblings.
func IsEligible(p *Promotion, ec EvaluationContext, now time.Time) (eligible bool) {
	defer func() {
		if recover() != nil {
			eligible = false
		}
	}()

	if !withinWindow(p, now) {
		return false
	}
	if !withinUsageLimits(p, ec) {
		return false
	}
	if !audienceEligible(p, ec) {
		return false
	}
	return EvaluateConditions(p.Rules.Conditions, ec)
}

// withinWindow checks [valid_from, valid_to], both bounds inclusive. An
// absent bound imposes no constraint on that side.
func withinWindow(p *Promotion, now time.Time) bool {
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidTo != nil && now.After(*p.ValidTo) {
		return false
	}
	return true
}

func withinUsageLimits(p *Promotion, ec EvaluationContext) bool {
	limits := p.UsageLimits
	if limits == nil {
		return true
	}
	if limits.UsesRemaining != nil && *limits.UsesRemaining <= 0 {
		return false
	}
	if limits.PerCustomer > 0 && ec.PreviousUses >= limits.PerCustomer {
		return false
	}
	return true
}

// audienceEligible checks customer type, segment, channel and region
// membership. An axis is only enforced when the promotion restricts it AND
// the context supplies the field; an absent context field skips the check
// rather than failing it.
func audienceEligible(p *Promotion, ec EvaluationContext) bool {
	rules := p.Eligibility
	if rules == nil {
		return true
	}
	if len(rules.CustomerTypes) > 0 && ec.CustomerType != "" {
		if !slices.Contains(rules.CustomerTypes, ec.CustomerType) {
			return false
		}
	}
	if len(rules.CustomerSegments) > 0 && len(ec.Segments) > 0 {
		if !overlaps(rules.CustomerSegments, ec.Segments) {
			return false
		}
	}
	if len(rules.Channels) > 0 && ec.Channel != "" {
		if !slices.Contains(rules.Channels, ec.Channel) {
			return false
		}
	}
	if len(rules.Regions) > 0 && ec.Region != "" {
		if !slices.Contains(rules.Regions, ec.Region) {
			return false
		}
	}
	return true
}

func overlaps(a, b []string) bool {
	for _, s := range b {
		if slices.Contains(a, s) {
			return true
		}
	}
	return false
}
