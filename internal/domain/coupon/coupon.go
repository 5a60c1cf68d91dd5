package coupon

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Status is the lifecycle state of a coupon instance.
type Status string

const (
	StatusActive   Status = "active"
	StatusUsed     Status = "used"
	StatusExpired  Status = "expired"
	StatusDisabled Status = "disabled"
	StatusReserved Status = "reserved"
)

// Type controls how many times an instance may be redeemed.
type Type string

const (
	TypeSingleUse Type = "single_use"
	TypeMultiUse  Type = "multi_use"
	TypeUnlimited Type = "unlimited"
)

var (
	// ErrNotFound is returned when no coupon matches the supplied code.
	ErrNotFound = errors.New("coupon not found")
	// ErrExpired is returned when a coupon is outside its validity window.
	ErrExpired = errors.New("coupon expired")
	// ErrExhausted is returned when a coupon has no redemptions left.
	ErrExhausted = errors.New("coupon usage limit reached")
	// ErrNotRedeemable is returned for disabled or reserved coupons.
	ErrNotRedeemable = errors.New("coupon not redeemable")
)

// Instance is one redeemable code bound to a promotion.
//
// Invariant: UsageCount never exceeds UsageLimit when UsageLimit is set
// (non-zero); a single_use instance carries UsageLimit 1.
type Instance struct {
	ID          string
	Code        string
	PromotionID string
	Status      Status
	Type        Type
	UsageCount  int
	// UsageLimit of 0 means unlimited.
	UsageLimit int
	// AssignedTo optionally restricts redemption to one customer or segment.
	AssignedTo string
	ValidFrom  *time.Time
	ValidTo    *time.Time
	// GenerationBatch groups instances created by one bulk generation run.
	GenerationBatch string
	LastUsedAt      *time.Time
	LastUsedBy      string
	CreatedAt       time.Time
}

// Redeemable reports whether the instance can be redeemed at the given time,
// returning the specific refusal reason otherwise.
func (i *Instance) Redeemable(now time.Time) error {
	switch i.Status {
	case StatusActive:
	case StatusUsed:
		return ErrExhausted
	case StatusExpired:
		return ErrExpired
	default:
		return ErrNotRedeemable
	}
	if i.ValidFrom != nil && now.Before(*i.ValidFrom) {
		return ErrExpired
	}
	if i.ValidTo != nil && now.After(*i.ValidTo) {
		return ErrExpired
	}
	if i.UsageLimit > 0 && i.UsageCount >= i.UsageLimit {
		return ErrExhausted
	}
	return nil
}

// Redeem applies one redemption in memory: increments the usage counter,
// stamps last use, and flips the status to used once the limit is reached.
// Persisting the transition atomically is the repository's job.
func (i *Instance) Redeem(customerID string, now time.Time) error {
	if err := i.Redeemable(now); err != nil {
		return err
	}
	i.UsageCount++
	i.LastUsedAt = &now
	i.LastUsedBy = customerID
	if i.UsageLimit > 0 && i.UsageCount >= i.UsageLimit {
		i.Status = StatusUsed
	}
	return nil
}

// BatchSpec parametrizes bulk coupon generation.
type BatchSpec struct {
	PromotionID string
	Count       int
	Type        Type
	UsageLimit  int
	ValidFrom   *time.Time
	ValidTo     *time.Time
}

// NewBatch generates Count fresh instances sharing one generation batch id.
// A single_use spec always gets usage limit 1 regardless of what the spec
// carries.
func NewBatch(spec BatchSpec, now time.Time) []Instance {
	limit := spec.UsageLimit
	if spec.Type == TypeSingleUse {
		limit = 1
	}

	batch := uuid.New().String()
	instances := make([]Instance, spec.Count)
	for n := range instances {
		instances[n] = Instance{
			ID:              uuid.New().String(),
			Code:            randomCode(),
			PromotionID:     spec.PromotionID,
			Status:          StatusActive,
			Type:            spec.Type,
			UsageLimit:      limit,
			ValidFrom:       spec.ValidFrom,
			ValidTo:         spec.ValidTo,
			GenerationBatch: batch,
			CreatedAt:       now,
		}
	}
	return instances
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// randomCode returns a 10-character code from an alphabet without the
// ambiguous characters (0/O, 1/I).
func randomCode() string {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(err)
	}
	for n, b := range buf {
		buf[n] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}

// Repository defines persistence operations for coupon instances. Redeem must
// serialize concurrent redemptions of the same code (atomic increment guarded
// by the usage limit); everything else is read or insert only.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Instance, error)
	ListByPromotion(ctx context.Context, promotionID string) ([]Instance, error)
	CreateBatch(ctx context.Context, instances []Instance) error
	Redeem(ctx context.Context, code, customerID string) (*Instance, error)
}
