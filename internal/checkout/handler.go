package checkout

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
)

// Handler exposes the checkout service over HTTP.
type Handler struct {
	Svc   *Service
	Money money.Config
}

type lineResponse struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	PricePerUnit string `json:"price_per_unit"`
}

type submitResponse struct {
	Code                string         `json:"code"`
	Status              string         `json:"status"`
	PriceCurrency       string         `json:"price_currency"`
	PriceCurrencySymbol string         `json:"price_currency_symbol"`
	TotalPriceAmount    string         `json:"total_price_amount"`
	TotalDiscountAmount string         `json:"total_discount_amount"`
	ShippingAmount      string         `json:"shipping_amount"`
	GrandTotalAmount    string         `json:"grand_total_amount"`
	Items               []lineResponse `json:"items"`
}

// Submit handles POST /api/v1/checkout.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.Svc.Submit(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := submitResponse{
		Code:                res.Order.Code,
		Status:              string(res.Order.Status),
		PriceCurrency:       res.Cart.Currency,
		PriceCurrencySymbol: h.Money.Symbol(res.Cart.Currency),
		TotalPriceAmount:    h.Money.Format(res.Cart.TotalPrice),
		TotalDiscountAmount: h.Money.Format(res.Cart.TotalDiscount),
		ShippingAmount:      h.Money.Format(res.Shipping),
		GrandTotalAmount:    h.Money.Format(res.GrandTotal),
		Items:               make([]lineResponse, 0, len(res.Order.Lines)),
	}
	for _, l := range res.Order.Lines {
		out.Items = append(out.Items, lineResponse{
			SKU:          l.SKU,
			Name:         l.Name,
			Quantity:     l.Quantity,
			PricePerUnit: h.Money.Format(l.PricePerUnit),
		})
	}
	common.JSON(w, http.StatusCreated, out)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !common.WriteError(w, err) {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("checkout failed")
	}
}
