package order

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
)

// Handler exposes priced orders over HTTP.
type Handler struct {
	Svc   *Service
	Money money.Config
}

type lineResponse struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	PricePerUnit string `json:"price_per_unit"`
	TotalAmount  string `json:"total_amount"`
}

type orderResponse struct {
	Code                string         `json:"code"`
	Status              Status         `json:"status"`
	PriceCurrency       string         `json:"price_currency"`
	PriceCurrencySymbol string         `json:"price_currency_symbol"`
	PromotionTitle      *string        `json:"promotion_title"`
	TaxTitle            *string        `json:"tax_title"`
	ShippingMethod      *string        `json:"shipping_method"`
	Items               []lineResponse `json:"items"`
	SubtotalAmount      string         `json:"subtotal_amount"`
	SavingsAmount       string         `json:"savings_amount"`
	TaxAmount           string         `json:"tax_amount"`
	ShippingAmount      string         `json:"shipping_amount"`
	GrandTotalAmount    string         `json:"grand_total_amount"`
	CreatedAt           time.Time      `json:"created_at"`
}

// Get handles GET /api/v1/orders/{code}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		if !common.WriteError(w, err) {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("load order")
		}
		return
	}
	common.JSON(w, http.StatusOK, h.render(view))
}

func (h *Handler) render(v View) orderResponse {
	out := orderResponse{
		Code:                v.Order.Code,
		Status:              v.Order.Status,
		PriceCurrency:       v.Order.Currency,
		PriceCurrencySymbol: h.Money.Symbol(v.Order.Currency),
		Items:               make([]lineResponse, 0, len(v.Lines)),
		SubtotalAmount:      h.Money.Format(v.Summary.Subtotal),
		SavingsAmount:       h.Money.Format(v.Summary.Savings),
		TaxAmount:           h.Money.Format(v.Summary.Tax),
		ShippingAmount:      h.Money.Format(v.Summary.Shipping),
		GrandTotalAmount:    h.Money.Format(v.Summary.GrandTotal),
		CreatedAt:           v.Order.CreatedAt,
	}
	if v.Promotion != nil {
		out.PromotionTitle = &v.Promotion.Title
	}
	if v.Tax != nil {
		out.TaxTitle = &v.Tax.Title
	}
	if v.Order.Shipping != nil {
		out.ShippingMethod = &v.Order.Shipping.Method
	}
	for _, l := range v.Lines {
		out.Items = append(out.Items, lineResponse{
			SKU:          l.SKU,
			Name:         l.Name,
			Quantity:     l.Quantity,
			PricePerUnit: h.Money.Format(l.PricePerUnit),
			TotalAmount:  h.Money.Format(l.Totals.Total),
		})
	}
	return out
}
