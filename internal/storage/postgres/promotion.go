package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oakmart/promo-engine/internal/domain/promo"
)

const promotionColumns = `id, name, description, type, status, rules,
	valid_from, valid_to, activation_method, code,
	usage_limits, eligibility, priority, stackable, created_at, updated_at`

const (
	listActivePromotionsSQL = `SELECT ` + promotionColumns + `
		FROM promotions
		WHERE status = 'active'
		  AND (valid_from IS NULL OR valid_from <= $1)
		  AND (valid_to IS NULL OR valid_to >= $1)
		ORDER BY priority DESC, created_at`

	listCodeActivatedSQL = `SELECT p.id, p.name, p.description, p.type, p.status, p.rules,
		p.valid_from, p.valid_to, p.activation_method, p.code,
		p.usage_limits, p.eligibility, p.priority, p.stackable, p.created_at, p.updated_at,
		COALESCE(array_agg(ci.code) FILTER (WHERE ci.code IS NOT NULL), '{}')
		FROM promotions p
		LEFT JOIN coupon_instances ci
		  ON ci.promotion_id = p.id AND ci.status = 'active'
		WHERE p.status = 'active' AND p.activation_method = 'code'
		GROUP BY p.id`

	listPromotionsSQL = `SELECT ` + promotionColumns + `
		FROM promotions ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	getPromotionSQL = `SELECT ` + promotionColumns + `
		FROM promotions WHERE id = $1`

	insertPromotionSQL = `INSERT INTO promotions
		(id, name, description, type, status, rules, valid_from, valid_to,
		 activation_method, code, usage_limits, eligibility, priority, stackable,
		 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	updatePromotionSQL = `UPDATE promotions SET
		name = $2, description = $3, type = $4, status = $5, rules = $6,
		valid_from = $7, valid_to = $8, activation_method = $9, code = $10,
		usage_limits = $11, eligibility = $12, priority = $13, stackable = $14,
		updated_at = $15
		WHERE id = $1`

	deletePromotionSQL = `DELETE FROM promotions WHERE id = $1`
)

var (
	_ promo.Repository = (*PromotionRepository)(nil)
)

// PromotionRepository implements promotion persistence backed by PostgreSQL.
// Structured fields (name, rules, limits, eligibility) live in JSONB columns;
// the scalar columns exist so the hot listing queries can filter and order
// without unpacking JSON.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// ListActive returns active promotions whose validity window contains now.
func (r *PromotionRepository) ListActive(ctx context.Context, now time.Time) ([]promo.Promotion, error) {
	rows, err := r.pool.Query(ctx, listActivePromotionsSQL, now)
	if err != nil {
		return nil, fmt.Errorf("listing active promotions: %w", err)
	}

	promos, err := pgx.CollectRows(rows, scanPromotion)
	if err != nil {
		return nil, fmt.Errorf("listing active promotions: %w", err)
	}
	return promos, nil
}

// ListCodeActivated returns active code-activated promotions with their code
// material populated: the static code column plus every active generated
// instance code.
func (r *PromotionRepository) ListCodeActivated(ctx context.Context) ([]promo.Promotion, error) {
	rows, err := r.pool.Query(ctx, listCodeActivatedSQL)
	if err != nil {
		return nil, fmt.Errorf("listing code-activated promotions: %w", err)
	}

	promos, err := pgx.CollectRows(rows, scanPromotionWithCodes)
	if err != nil {
		return nil, fmt.Errorf("listing code-activated promotions: %w", err)
	}
	return promos, nil
}

// List returns a page of promotions, newest first.
func (r *PromotionRepository) List(ctx context.Context, limit, offset int) ([]promo.Promotion, error) {
	rows, err := r.pool.Query(ctx, listPromotionsSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing promotions: %w", err)
	}

	promos, err := pgx.CollectRows(rows, scanPromotion)
	if err != nil {
		return nil, fmt.Errorf("listing promotions: %w", err)
	}
	return promos, nil
}

// GetByID returns one promotion, or promo.ErrNotFound.
func (r *PromotionRepository) GetByID(ctx context.Context, id string) (*promo.Promotion, error) {
	rows, err := r.pool.Query(ctx, getPromotionSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting promotion %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, fmt.Errorf("getting promotion %q: %w", id, err)
	}
	return &p, nil
}

// Create persists a new promotion.
func (r *PromotionRepository) Create(ctx context.Context, p *promo.Promotion) error {
	args, err := promotionArgs(p)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, insertPromotionSQL, args...); err != nil {
		return fmt.Errorf("creating promotion %q: %w", p.ID, err)
	}
	return nil
}

// Update overwrites an existing promotion, or returns promo.ErrNotFound.
func (r *PromotionRepository) Update(ctx context.Context, p *promo.Promotion) error {
	args, err := promotionArgs(p)
	if err != nil {
		return err
	}
	// promotionArgs puts created_at and updated_at last; the update statement
	// only takes updated_at.
	args = append(args[:len(args)-2], p.UpdatedAt)

	tag, err := r.pool.Exec(ctx, updatePromotionSQL, args...)
	if err != nil {
		return fmt.Errorf("updating promotion %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrNotFound
	}
	return nil
}

// Delete removes a promotion and, via the FK cascade, its coupon instances.
func (r *PromotionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deletePromotionSQL, id)
	if err != nil {
		return fmt.Errorf("deleting promotion %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrNotFound
	}
	return nil
}

func promotionArgs(p *promo.Promotion) ([]any, error) {
	name, err := json.Marshal(p.Name)
	if err != nil {
		return nil, fmt.Errorf("marshaling promotion name: %w", err)
	}
	var description []byte
	if !p.Description.IsZero() {
		if description, err = json.Marshal(p.Description); err != nil {
			return nil, fmt.Errorf("marshaling promotion description: %w", err)
		}
	}
	rules, err := json.Marshal(p.Rules)
	if err != nil {
		return nil, fmt.Errorf("marshaling promotion rules: %w", err)
	}
	var limits, eligibility []byte
	if p.UsageLimits != nil {
		if limits, err = json.Marshal(p.UsageLimits); err != nil {
			return nil, fmt.Errorf("marshaling usage limits: %w", err)
		}
	}
	if p.Eligibility != nil {
		if eligibility, err = json.Marshal(p.Eligibility); err != nil {
			return nil, fmt.Errorf("marshaling eligibility: %w", err)
		}
	}

	var code *string
	if p.Codes != nil && p.Codes.Single != "" {
		code = &p.Codes.Single
	}

	return []any{
		p.ID, name, description, string(p.Type), string(p.Status), rules,
		p.ValidFrom, p.ValidTo, string(p.Activation), code,
		limits, eligibility, p.Priority, p.Stackable, p.CreatedAt, p.UpdatedAt,
	}, nil
}

func scanPromotion(row pgx.CollectableRow) (promo.Promotion, error) {
	var (
		p           promo.Promotion
		name        []byte
		description []byte
		typ, status string
		rules       []byte
		activation  string
		code        *string
		limits      []byte
		eligibility []byte
	)
	err := row.Scan(
		&p.ID, &name, &description, &typ, &status, &rules,
		&p.ValidFrom, &p.ValidTo, &activation, &code,
		&limits, &eligibility, &p.Priority, &p.Stackable, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}
	if err := fillPromotion(&p, name, description, typ, status, rules, activation, code, limits, eligibility); err != nil {
		return p, err
	}
	return p, nil
}

func scanPromotionWithCodes(row pgx.CollectableRow) (promo.Promotion, error) {
	var (
		p           promo.Promotion
		name        []byte
		description []byte
		typ, status string
		rules       []byte
		activation  string
		code        *string
		limits      []byte
		eligibility []byte
		generated   []string
	)
	err := row.Scan(
		&p.ID, &name, &description, &typ, &status, &rules,
		&p.ValidFrom, &p.ValidTo, &activation, &code,
		&limits, &eligibility, &p.Priority, &p.Stackable, &p.CreatedAt, &p.UpdatedAt,
		&generated,
	)
	if err != nil {
		return p, err
	}
	if err := fillPromotion(&p, name, description, typ, status, rules, activation, code, limits, eligibility); err != nil {
		return p, err
	}
	if len(generated) > 0 {
		if p.Codes == nil {
			p.Codes = &promo.Codes{}
		}
		p.Codes.Generated = generated
	}
	return p, nil
}

func fillPromotion(p *promo.Promotion, name, description []byte, typ, status string, rules []byte, activation string, code *string, limits, eligibility []byte) error {
	if err := json.Unmarshal(name, &p.Name); err != nil {
		return fmt.Errorf("unmarshaling promotion %q name: %w", p.ID, err)
	}
	if len(description) > 0 {
		if err := json.Unmarshal(description, &p.Description); err != nil {
			return fmt.Errorf("unmarshaling promotion %q description: %w", p.ID, err)
		}
	}
	if err := json.Unmarshal(rules, &p.Rules); err != nil {
		return fmt.Errorf("unmarshaling promotion %q rules: %w", p.ID, err)
	}
	if len(limits) > 0 {
		p.UsageLimits = &promo.UsageLimits{}
		if err := json.Unmarshal(limits, p.UsageLimits); err != nil {
			return fmt.Errorf("unmarshaling promotion %q usage limits: %w", p.ID, err)
		}
	}
	if len(eligibility) > 0 {
		p.Eligibility = &promo.Eligibility{}
		if err := json.Unmarshal(eligibility, p.Eligibility); err != nil {
			return fmt.Errorf("unmarshaling promotion %q eligibility: %w", p.ID, err)
		}
	}
	p.Type = promo.Type(typ)
	p.Status = promo.Status(status)
	p.Activation = promo.ActivationMethod(activation)
	if code != nil && *code != "" {
		p.Codes = &promo.Codes{Single: *code}
	}
	return nil
}
