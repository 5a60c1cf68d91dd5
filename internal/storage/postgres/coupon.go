package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oakmart/promo-engine/internal/domain/coupon"
)

const couponColumns = `id, code, promotion_id, status, type, usage_count, usage_limit,
	assigned_to, valid_from, valid_to, generation_batch, last_used_at, last_used_by, created_at`

const (
	findCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupon_instances WHERE UPPER(code) = UPPER($1)`

	listCouponsByPromotionSQL = `SELECT ` + couponColumns + `
		FROM coupon_instances WHERE promotion_id = $1 ORDER BY created_at, code`

	insertCouponSQL = `INSERT INTO coupon_instances
		(id, code, promotion_id, status, type, usage_count, usage_limit,
		 assigned_to, valid_from, valid_to, generation_batch, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	// The WHERE clause is the entire concurrency story: two racing
	// redemptions of the last use both match the row, but the second UPDATE
	// sees the incremented counter and matches nothing.
	redeemCouponSQL = `UPDATE coupon_instances SET
		usage_count = usage_count + 1,
		last_used_at = $3,
		last_used_by = $2,
		status = CASE
			WHEN usage_limit > 0 AND usage_count + 1 >= usage_limit THEN 'used'
			ELSE status
		END
		WHERE UPPER(code) = UPPER($1)
		  AND status = 'active'
		  AND (usage_limit = 0 OR usage_count < usage_limit)
		  AND (valid_from IS NULL OR valid_from <= $3)
		  AND (valid_to IS NULL OR valid_to >= $3)
		RETURNING ` + couponColumns
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon instance by its code, case-insensitive.
// Returns coupon.ErrNotFound when no instance carries the code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Instance, error) {
	rows, err := r.pool.Query(ctx, findCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	instance, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &instance, nil
}

// ListByPromotion returns every coupon instance of one promotion.
func (r *CouponRepository) ListByPromotion(ctx context.Context, promotionID string) ([]coupon.Instance, error) {
	rows, err := r.pool.Query(ctx, listCouponsByPromotionSQL, promotionID)
	if err != nil {
		return nil, fmt.Errorf("listing coupons for promotion %q: %w", promotionID, err)
	}

	instances, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, fmt.Errorf("listing coupons for promotion %q: %w", promotionID, err)
	}
	return instances, nil
}

// CreateBatch inserts all instances in one transaction so a generation run is
// all-or-nothing.
func (r *CouponRepository) CreateBatch(ctx context.Context, instances []coupon.Instance) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning coupon batch: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for n := range instances {
		i := &instances[n]
		_, err := tx.Exec(ctx, insertCouponSQL,
			i.ID, i.Code, i.PromotionID, string(i.Status), string(i.Type),
			i.UsageCount, i.UsageLimit, i.AssignedTo,
			i.ValidFrom, i.ValidTo, i.GenerationBatch, i.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting coupon %q: %w", i.Code, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing coupon batch: %w", err)
	}
	return nil
}

// Redeem atomically consumes one use of the coupon and returns the updated
// instance. When the guarded UPDATE matches nothing, the instance is fetched
// again to report the precise refusal: coupon.ErrNotFound, coupon.ErrExpired,
// coupon.ErrExhausted, or coupon.ErrNotRedeemable.
func (r *CouponRepository) Redeem(ctx context.Context, code, customerID string) (*coupon.Instance, error) {
	now := time.Now().UTC()

	rows, err := r.pool.Query(ctx, redeemCouponSQL, code, customerID, now)
	if err != nil {
		return nil, fmt.Errorf("redeeming coupon %q: %w", code, err)
	}

	instance, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err == nil {
		return &instance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("redeeming coupon %q: %w", code, err)
	}

	existing, err := r.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := existing.Redeemable(now); err != nil {
		return nil, err
	}
	// The instance was redeemable on re-read, so a concurrent redemption won
	// the race for the final use.
	return nil, coupon.ErrExhausted
}

func scanCoupon(row pgx.CollectableRow) (coupon.Instance, error) {
	var (
		i            coupon.Instance
		status, typ  string
		assignedTo   *string
		lastUsedBy   *string
		generationID *string
	)
	err := row.Scan(
		&i.ID, &i.Code, &i.PromotionID, &status, &typ, &i.UsageCount, &i.UsageLimit,
		&assignedTo, &i.ValidFrom, &i.ValidTo, &generationID, &i.LastUsedAt, &lastUsedBy, &i.CreatedAt,
	)
	i.Status = coupon.Status(status)
	i.Type = coupon.Type(typ)
	if assignedTo != nil {
		i.AssignedTo = *assignedTo
	}
	if lastUsedBy != nil {
		i.LastUsedBy = *lastUsedBy
	}
	if generationID != nil {
		i.GenerationBatch = *generationID
	}
	return i, err
}
