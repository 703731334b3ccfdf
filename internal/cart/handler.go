package cart

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/obs"
)

// Handler wires the cart validator to HTTP.
type Handler struct {
	Validator *Validator
	Money     money.Config
}

type itemEcho struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type checkResponse struct {
	CouponTitle         *string    `json:"coupon_title"`
	CouponSummary       *string    `json:"coupon_summary"`
	CouponDiscount      *string    `json:"coupon_discount"`
	PriceCurrency       string     `json:"price_currency"`
	PriceCurrencySymbol string     `json:"price_currency_symbol"`
	TotalPriceAmount    string     `json:"total_price_amount"`
	TotalDiscountAmount string     `json:"total_discount_amount"`
	Items               []itemEcho `json:"items"`
}

type couponOnlyResponse struct {
	CouponTitle    string `json:"coupon_title"`
	CouponSummary  string `json:"coupon_summary"`
	CouponDiscount string `json:"coupon_discount"`
	Cart           any    `json:"cart"`
}

// Check handles POST /api/v1/cart/check.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.Validator.Check(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	obs.IncCartCheck("ok")
	if res.CouponOnly {
		common.JSON(w, http.StatusOK, couponOnlyResponse{
			CouponTitle:    res.Coupon.Title,
			CouponSummary:  res.Coupon.Summary,
			CouponDiscount: res.Coupon.DiscountLabel(),
			Cart:           nil,
		})
		return
	}
	common.JSON(w, http.StatusOK, h.render(res))
}

func (h *Handler) render(res Result) checkResponse {
	out := checkResponse{
		PriceCurrency:       res.Currency,
		PriceCurrencySymbol: h.Money.Symbol(res.Currency),
		TotalPriceAmount:    h.Money.Format(res.TotalPrice),
		TotalDiscountAmount: h.Money.Format(res.TotalDiscount),
		Items:               make([]itemEcho, 0, len(res.Lines)),
	}
	if res.Coupon != nil {
		title, summary, label := res.Coupon.Title, res.Coupon.Summary, res.Coupon.DiscountLabel()
		out.CouponTitle, out.CouponSummary, out.CouponDiscount = &title, &summary, &label
	}
	for _, l := range res.Lines {
		out.Items = append(out.Items, itemEcho{SKU: l.Item.SKU, Quantity: l.Quantity})
	}
	return out
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := common.AsAppError(err); ok {
		obs.IncCartCheck(appErr.Code)
	} else {
		obs.IncCartCheck("error")
	}
	if !common.WriteError(w, err) {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("cart check failed")
	}
}
