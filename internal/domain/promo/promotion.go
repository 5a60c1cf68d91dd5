package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Type scopes what a promotion discounts.
type Type string

const (
	TypeCart     Type = "cart"
	TypeProduct  Type = "product"
	TypeShipping Type = "shipping"
)

// Status is the lifecycle state of a promotion. Only active promotions are
// ever applied to a cart.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusExpired   Status = "expired"
	StatusArchived  Status = "archived"
)

// ActivationMethod controls how a promotion is triggered.
type ActivationMethod string

const (
	ActivationAutomatic        ActivationMethod = "automatic"
	ActivationCode             ActivationMethod = "code"
	ActivationCustomerSpecific ActivationMethod = "customer_specific"
	ActivationLink             ActivationMethod = "link"
)

// ErrNotFound is returned when a requested promotion does not exist.
var ErrNotFound = errors.New("promotion not found")

// Promotion is a persisted discount policy: conditions gate it, actions
// describe what it grants.
type Promotion struct {
	ID          string
	Name        LocalizedText
	Description LocalizedText
	Type        Type
	Status      Status
	Rules       Rules
	ValidFrom   *time.Time
	ValidTo     *time.Time
	Activation  ActivationMethod
	Codes       *Codes
	UsageLimits *UsageLimits
	Eligibility *Eligibility
	// Priority orders stacking resolution, 0-1000, higher wins.
	Priority  int
	Stackable bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Rules pairs the gating conditions (AND semantics, empty means always true)
// with the non-empty action list describing the discount.
type Rules struct {
	Conditions []Condition `json:"conditions,omitempty"`
	Actions    []Action    `json:"actions"`
}

// Condition is one gating rule evaluated against the cart context.
type Condition struct {
	Type     ConditionType `json:"type"`
	Operator Operator      `json:"operator,omitempty"`
	Value    Value         `json:"value,omitempty"`
}

// Action describes one discount contribution.
type Action struct {
	Type    ActionType `json:"type"`
	Value   Value      `json:"value,omitempty"`
	ApplyTo string     `json:"apply_to,omitempty"`
	Tiers   []Tier     `json:"tiers,omitempty"`
}

// Tier is one threshold step of a tiered discount.
type Tier struct {
	MinValue      Value  `json:"min_value"`
	DiscountType  string `json:"discount_type"`
	DiscountValue Value  `json:"discount_value"`
}

// Codes holds the redeemable code material of a code-activated promotion:
// a single static code, generated per-customer instance codes, or both.
type Codes struct {
	Single    string   `json:"single,omitempty"`
	Generated []string `json:"generated,omitempty"`
}

// UsageLimits caps how often a promotion may be applied. UsesRemaining is a
// pointer because zero is meaningful: a set value of 0 means exhausted, while
// an absent value means uncounted.
type UsageLimits struct {
	TotalUses         int    `json:"total_uses,omitempty"`
	UsesRemaining     *int   `json:"uses_remaining,omitempty"`
	PerCustomer       int    `json:"per_customer,omitempty"`
	PerCustomerPeriod string `json:"per_customer_period,omitempty"`
}

// Eligibility restricts who and where a promotion applies. Each empty list
// imposes no restriction on that axis.
type Eligibility struct {
	CustomerTypes    []string `json:"customer_types,omitempty"`
	CustomerSegments []string `json:"customer_segments,omitempty"`
	Channels         []string `json:"channels,omitempty"`
	Regions          []string `json:"regions,omitempty"`
}

// Repository provides the engine's read access to promotions.
type Repository interface {
	// ListActive returns promotions with active status whose validity window
	// contains now.
	ListActive(ctx context.Context, now time.Time) ([]Promotion, error)
}
