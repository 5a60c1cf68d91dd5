package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/go-faster/sdk/zctx"

	"github.com/oakmart/promo-engine/internal/domain/auth"
	"github.com/oakmart/promo-engine/internal/domain/coupon"
	"github.com/oakmart/promo-engine/internal/domain/promo"
)

// PromotionStore is the persistence surface the admin endpoints need on top
// of the engine's read path.
type PromotionStore interface {
	List(ctx context.Context, limit, offset int) ([]promo.Promotion, error)
	GetByID(ctx context.Context, id string) (*promo.Promotion, error)
	Create(ctx context.Context, p *promo.Promotion) error
	Update(ctx context.Context, p *promo.Promotion) error
	Delete(ctx context.Context, id string) error
}

// Handler serves the promotion engine's HTTP API, delegating business logic
// to the injected domain components.
type Handler struct {
	promotions PromotionStore
	coupons    coupon.Repository
	resolver   *coupon.Resolver
	verifier   *auth.Verifier
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	promotions PromotionStore,
	coupons coupon.Repository,
	resolver *coupon.Resolver,
	verifier *auth.Verifier,
) *Handler {
	return &Handler{
		promotions: promotions,
		coupons:    coupons,
		resolver:   resolver,
		verifier:   verifier,
	}
}

// Routes mounts the API under /api. The validation endpoint is public; the
// admin surface requires an API key.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Post("/discounts/validate", h.ValidateDiscount)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAPIKey)

			r.Route("/promotions", func(r chi.Router) {
				r.Get("/", h.ListPromotions)
				r.Post("/", h.CreatePromotion)
				r.Get("/{id}", h.GetPromotion)
				r.Put("/{id}", h.UpdatePromotion)
				r.Delete("/{id}", h.DeletePromotion)
				r.Post("/{id}/coupons", h.GenerateCoupons)
				r.Get("/{id}/coupons", h.ListCoupons)
			})
			r.Post("/coupons/redeem", h.RedeemCoupon)
		})
	})

	return r
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(ctx).Warn("Encoding response", zap.Error(err))
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, code int, message string) {
	writeJSON(ctx, w, code, errorResponse{Code: code, Message: message})
}

func writeInternalError(ctx context.Context, w http.ResponseWriter, err error) {
	zctx.From(ctx).Error("Request failed", zap.Error(err))
	writeError(ctx, w, http.StatusInternalServerError, "internal error")
}
