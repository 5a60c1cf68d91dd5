package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakmart/promo-engine/internal/domain/promo"
)

// adminPromotion is the flat administrative shape: one discount type and
// value plus an optional minimum, translated to and from the rule structure.
type adminPromotion struct {
	ID            string              `json:"id,omitempty"`
	Name          promo.LocalizedText `json:"name"`
	Description   promo.LocalizedText `json:"description,omitempty"`
	Type          string              `json:"type"`
	Value         decimal.Decimal     `json:"value"`
	MinimumAmount *decimal.Decimal    `json:"minimumAmount,omitempty"`
	Code          string              `json:"code,omitempty"`
	Status        string              `json:"status,omitempty"`
	ValidFrom     *time.Time          `json:"validFrom,omitempty"`
	ValidTo       *time.Time          `json:"validTo,omitempty"`
	Priority      int                 `json:"priority,omitempty"`
	Stackable     bool                `json:"stackable,omitempty"`
	UsageLimits   *promo.UsageLimits  `json:"usageLimits,omitempty"`
	Eligibility   *promo.Eligibility  `json:"eligibility,omitempty"`
	CreatedAt     *time.Time          `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time          `json:"updatedAt,omitempty"`
}

const (
	adminTypePercentage  = "percentage"
	adminTypeFixed       = "fixed_amount"
	adminTypeFreeShipped = "free_shipping"
)

// ListPromotions serves GET /api/promotions with limit/offset paging.
func (h *Handler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	promos, err := h.promotions.List(ctx, limit, offset)
	if err != nil {
		writeInternalError(ctx, w, err)
		return
	}

	out := make([]adminPromotion, len(promos))
	for n := range promos {
		out[n] = toAdminShape(&promos[n])
	}
	writeJSON(ctx, w, http.StatusOK, out)
}

// GetPromotion serves GET /api/promotions/{id}.
func (h *Handler) GetPromotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := h.promotions.GetByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, promo.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "promotion not found")
			return
		}
		writeInternalError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toAdminShape(p))
}

// CreatePromotion serves POST /api/promotions.
func (h *Handler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req adminPromotion
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := fromAdminShape(req)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := h.promotions.Create(ctx, p); err != nil {
		writeInternalError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, toAdminShape(p))
}

// UpdatePromotion serves PUT /api/promotions/{id}.
func (h *Handler) UpdatePromotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	existing, err := h.promotions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, promo.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "promotion not found")
			return
		}
		writeInternalError(ctx, w, err)
		return
	}

	var req adminPromotion
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := fromAdminShape(req)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	p.ID = id
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	if err := h.promotions.Update(ctx, p); err != nil {
		if errors.Is(err, promo.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "promotion not found")
			return
		}
		writeInternalError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toAdminShape(p))
}

// DeletePromotion serves DELETE /api/promotions/{id}.
func (h *Handler) DeletePromotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.promotions.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, promo.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "promotion not found")
			return
		}
		writeInternalError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func fromAdminShape(req adminPromotion) (*promo.Promotion, error) {
	if req.Name.IsZero() {
		return nil, errors.New("name is required")
	}

	p := &promo.Promotion{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Status:      promo.StatusDraft,
		ValidFrom:   req.ValidFrom,
		ValidTo:     req.ValidTo,
		Activation:  promo.ActivationAutomatic,
		UsageLimits: req.UsageLimits,
		Eligibility: req.Eligibility,
		Priority:    req.Priority,
		Stackable:   req.Stackable,
	}
	if req.Status != "" {
		p.Status = promo.Status(req.Status)
	}
	if req.Code != "" {
		p.Activation = promo.ActivationCode
		p.Codes = &promo.Codes{Single: req.Code}
	}

	switch req.Type {
	case adminTypePercentage:
		p.Type = promo.TypeCart
		p.Rules.Actions = []promo.Action{
			{Type: promo.ActionPercentage, Value: promo.NumberValue(req.Value), ApplyTo: "cart_subtotal"},
		}
	case adminTypeFixed:
		p.Type = promo.TypeCart
		p.Rules.Actions = []promo.Action{
			{Type: promo.ActionFixed, Value: promo.NumberValue(req.Value)},
		}
	case adminTypeFreeShipped:
		p.Type = promo.TypeShipping
		p.Rules.Actions = []promo.Action{
			{Type: promo.ActionShippingPercent, Value: promo.NumberValue(decimal.NewFromInt(100))},
		}
	default:
		return nil, errors.Errorf("unsupported discount type %q", req.Type)
	}

	if req.MinimumAmount != nil {
		p.Rules.Conditions = []promo.Condition{
			{Type: promo.ConditionCartSubtotal, Operator: promo.OpGte, Value: promo.NumberValue(*req.MinimumAmount)},
		}
	}
	return p, nil
}

func toAdminShape(p *promo.Promotion) adminPromotion {
	out := adminPromotion{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Status:      string(p.Status),
		ValidFrom:   p.ValidFrom,
		ValidTo:     p.ValidTo,
		Priority:    p.Priority,
		Stackable:   p.Stackable,
		UsageLimits: p.UsageLimits,
		Eligibility: p.Eligibility,
	}
	if !p.CreatedAt.IsZero() {
		created := p.CreatedAt
		out.CreatedAt = &created
	}
	if !p.UpdatedAt.IsZero() {
		updated := p.UpdatedAt
		out.UpdatedAt = &updated
	}
	if p.Codes != nil {
		out.Code = p.Codes.Single
	}

	for _, action := range p.Rules.Actions {
		switch action.Type {
		case promo.ActionPercentage:
			out.Type = adminTypePercentage
			if v, ok := action.Value.Number(); ok {
				out.Value = v
			}
		case promo.ActionFixed:
			out.Type = adminTypeFixed
			if v, ok := action.Value.Amount(); ok {
				out.Value = v
			}
		case promo.ActionShippingPercent:
			if promo.IsFreeShipping(action) {
				out.Type = adminTypeFreeShipped
				out.Value = decimal.NewFromInt(100)
			}
		}
		if out.Type != "" {
			break
		}
	}

	for _, cond := range p.Rules.Conditions {
		if cond.Type == promo.ConditionCartSubtotal && cond.Operator == promo.OpGte {
			if v, ok := cond.Value.Amount(); ok {
				out.MinimumAmount = &v
			}
			break
		}
	}
	return out
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
