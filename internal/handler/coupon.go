package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/oakmart/promo-engine/internal/domain/coupon"
	"github.com/oakmart/promo-engine/internal/domain/promo"
)

type generateCouponsRequest struct {
	Count      int        `json:"count"`
	Type       string     `json:"type,omitempty"`
	UsageLimit int        `json:"usageLimit,omitempty"`
	ValidFrom  *time.Time `json:"validFrom,omitempty"`
	ValidTo    *time.Time `json:"validTo,omitempty"`
}

type generateCouponsResponse struct {
	GenerationBatch string   `json:"generationBatch"`
	Codes           []string `json:"codes"`
}

const maxGenerationCount = 10000

// GenerateCoupons serves POST /api/promotions/{id}/coupons: bulk generation
// of coupon instances sharing one generation batch.
func (h *Handler) GenerateCoupons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	promotionID := chi.URLParam(r, "id")

	var req generateCouponsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Count <= 0 || req.Count > maxGenerationCount {
		writeError(ctx, w, http.StatusBadRequest, "count must be between 1 and 10000")
		return
	}

	if _, err := h.promotions.GetByID(ctx, promotionID); err != nil {
		if errors.Is(err, promo.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "promotion not found")
			return
		}
		writeInternalError(ctx, w, err)
		return
	}

	couponType := coupon.TypeSingleUse
	if req.Type != "" {
		couponType = coupon.Type(req.Type)
	}

	instances := coupon.NewBatch(coupon.BatchSpec{
		PromotionID: promotionID,
		Count:       req.Count,
		Type:        couponType,
		UsageLimit:  req.UsageLimit,
		ValidFrom:   req.ValidFrom,
		ValidTo:     req.ValidTo,
	}, time.Now().UTC())

	if err := h.coupons.CreateBatch(ctx, instances); err != nil {
		writeInternalError(ctx, w, err)
		return
	}

	codes := make([]string, len(instances))
	for n := range instances {
		codes[n] = instances[n].Code
	}
	writeJSON(ctx, w, http.StatusCreated, generateCouponsResponse{
		GenerationBatch: instances[0].GenerationBatch,
		Codes:           codes,
	})
}

type couponView struct {
	ID              string     `json:"id"`
	Code            string     `json:"code"`
	PromotionID     string     `json:"promotionId"`
	Status          string     `json:"status"`
	Type            string     `json:"type"`
	UsageCount      int        `json:"usageCount"`
	UsageLimit      int        `json:"usageLimit,omitempty"`
	AssignedTo      string     `json:"assignedTo,omitempty"`
	ValidFrom       *time.Time `json:"validFrom,omitempty"`
	ValidTo         *time.Time `json:"validTo,omitempty"`
	GenerationBatch string     `json:"generationBatch,omitempty"`
	LastUsedAt      *time.Time `json:"lastUsedAt,omitempty"`
	LastUsedBy      string     `json:"lastUsedBy,omitempty"`
}

// ListCoupons serves GET /api/promotions/{id}/coupons.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	instances, err := h.coupons.ListByPromotion(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeInternalError(ctx, w, err)
		return
	}

	out := make([]couponView, len(instances))
	for n := range instances {
		out[n] = toCouponView(&instances[n])
	}
	writeJSON(ctx, w, http.StatusOK, out)
}

type redeemRequest struct {
	Code       string `json:"code"`
	CustomerID string `json:"customerId,omitempty"`
}

// RedeemCoupon serves POST /api/coupons/redeem. The repository serializes
// concurrent redemptions; at most UsageLimit of them ever succeed.
func (h *Handler) RedeemCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(ctx, w, http.StatusBadRequest, "code is required")
		return
	}

	instance, err := h.coupons.Redeem(ctx, req.Code, req.CustomerID)
	if err != nil {
		switch {
		case errors.Is(err, coupon.ErrNotFound):
			writeError(ctx, w, http.StatusNotFound, "coupon not found")
		case errors.Is(err, coupon.ErrExpired):
			writeError(ctx, w, http.StatusConflict, "coupon expired")
		case errors.Is(err, coupon.ErrExhausted):
			writeError(ctx, w, http.StatusConflict, "coupon usage limit reached")
		case errors.Is(err, coupon.ErrNotRedeemable):
			writeError(ctx, w, http.StatusConflict, "coupon not redeemable")
		default:
			writeInternalError(ctx, w, err)
		}
		return
	}
	writeJSON(ctx, w, http.StatusOK, toCouponView(instance))
}

func toCouponView(i *coupon.Instance) couponView {
	return couponView{
		ID:              i.ID,
		Code:            i.Code,
		PromotionID:     i.PromotionID,
		Status:          string(i.Status),
		Type:            string(i.Type),
		UsageCount:      i.UsageCount,
		UsageLimit:      i.UsageLimit,
		AssignedTo:      i.AssignedTo,
		ValidFrom:       i.ValidFrom,
		ValidTo:         i.ValidTo,
		GenerationBatch: i.GenerationBatch,
		LastUsedAt:      i.LastUsedAt,
		LastUsedBy:      i.LastUsedBy,
	}
}
