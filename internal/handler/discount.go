package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/oakmart/promo-engine/internal/domain/coupon"
	"github.com/oakmart/promo-engine/internal/domain/promo"
)

type validateRequest struct {
	Code          string           `json:"code"`
	CartSubtotal  *decimal.Decimal `json:"cartSubtotal,omitempty"`
	CartItems     []cartItem       `json:"cartItems,omitempty"`
	CustomerID    string           `json:"customerId,omitempty"`
	CustomerType  string           `json:"customerType,omitempty"`
	Segments      []string         `json:"segments,omitempty"`
	Channel       string           `json:"channel,omitempty"`
	Region        string           `json:"region,omitempty"`
	FirstPurchase bool             `json:"firstPurchase,omitempty"`
	PreviousUses  int              `json:"previousUses,omitempty"`
	Locale        string           `json:"locale,omitempty"`
}

type cartItem struct {
	ProductID string          `json:"productId"`
	Category  string          `json:"category,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type validateResponse struct {
	Valid     bool              `json:"valid"`
	Promotion *promotionSummary `json:"promotion,omitempty"`
	Error     string            `json:"error,omitempty"`
}

type promotionSummary struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	DisplayName    string          `json:"displayName"`
	Description    string          `json:"description,omitempty"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	DiscountType   string          `json:"discountType"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
}

// ValidateDiscount checks a coupon code against the supplied cart and reports
// the discount it would grant. Business failures always come back as
// {valid: false, error}; only an unparseable body is a 400.
func (h *Handler) ValidateDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	ec := evaluationContext(req)

	// The promotion is resolved without the context so the response can say
	// whether the code exists at all or merely failed its conditions.
	p, err := h.resolver.ResolveCode(ctx, req.Code, nil)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeJSON(ctx, w, http.StatusOK, validateResponse{Valid: false, Error: "code not found"})
			return
		}
		writeInternalError(ctx, w, err)
		return
	}

	if !promo.IsEligible(p, ec, time.Now()) {
		writeJSON(ctx, w, http.StatusOK, validateResponse{Valid: false, Error: "conditions not met"})
		return
	}

	writeJSON(ctx, w, http.StatusOK, validateResponse{
		Valid:     true,
		Promotion: summarize(p, ec),
	})
}

func evaluationContext(req validateRequest) promo.EvaluationContext {
	items := make([]promo.CartItem, len(req.CartItems))
	for n, item := range req.CartItems {
		items[n] = promo.CartItem{
			ProductID: item.ProductID,
			Category:  item.Category,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
	}
	return promo.EvaluationContext{
		CustomerID:    req.CustomerID,
		CustomerType:  req.CustomerType,
		Segments:      req.Segments,
		Channel:       req.Channel,
		Region:        req.Region,
		Subtotal:      req.CartSubtotal,
		Items:         items,
		FirstPurchase: req.FirstPurchase,
		PreviousUses:  req.PreviousUses,
		Locale:        req.Locale,
	}
}

func summarize(p *promo.Promotion, ec promo.EvaluationContext) *promotionSummary {
	s := &promotionSummary{
		ID:          p.ID,
		Type:        string(p.Type),
		DisplayName: p.Name.Resolve(ec.Locale),
		Description: p.Description.Resolve(ec.Locale),
	}

	if shipping, ok := promo.ShippingAction(p.Rules.Actions); ok && promo.IsFreeShipping(shipping) {
		s.DiscountType = "free_shipping"
		s.DiscountAmount = promo.FreeShippingAmount
		s.DiscountValue = decimal.NewFromInt(100)
		return s
	}

	s.DiscountAmount = promo.CalculateDiscount(p.Rules.Actions, ec)
	for _, action := range p.Rules.Actions {
		switch action.Type {
		case promo.ActionPercentage:
			s.DiscountType = "percentage"
			if v, ok := action.Value.Number(); ok {
				s.DiscountValue = v
			}
			return s
		case promo.ActionFixed:
			s.DiscountType = "fixed_amount"
			if v, ok := action.Value.Amount(); ok {
				s.DiscountValue = v
			}
			return s
		case promo.ActionTiered:
			// Tiers collapse to the concrete amount the cart earned.
			s.DiscountType = "fixed_amount"
			s.DiscountValue = s.DiscountAmount
			return s
		}
	}
	return s
}
