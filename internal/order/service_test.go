package order_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/order"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/promotion"
)

type fakeOrders struct {
	orders map[string]order.PurchaseOrder
	taxes  map[int64]order.TaxRecord
}

func (f *fakeOrders) GetByCode(_ context.Context, code string) (order.PurchaseOrder, bool, error) {
	po, ok := f.orders[code]
	return po, ok, nil
}

func (f *fakeOrders) FindTaxByID(_ context.Context, id int64) (order.TaxRecord, bool, error) {
	t, ok := f.taxes[id]
	return t, ok, nil
}

type fakePromotions struct {
	promos map[int64]promotion.Promotion
	links  map[int64][]int64
}

func (f *fakePromotions) FindByID(_ context.Context, id int64) (promotion.Promotion, bool, error) {
	p, ok := f.promos[id]
	return p, ok, nil
}

func (f *fakePromotions) ListLinksForPromotion(_ context.Context, promotionID int64) ([]int64, error) {
	return f.links[promotionID], nil
}

func int64Ptr(v int64) *int64 { return &v }

func usd(v string) money.Money { return money.MustParse(v, "USD") }

func fixture(taxBefore bool) (*order.Service, *fakeOrders) {
	orders := &fakeOrders{
		orders: map[string]order.PurchaseOrder{
			"PO-1": {
				ID:          1,
				Code:        "PO-1",
				Status:      order.StatusProcessing,
				Currency:    "USD",
				PromotionID: int64Ptr(5),
				TaxID:       int64Ptr(9),
				Shipping:    &order.ShippingRecord{Method: "standard", Amount: usd("5.00")},
				Lines: []order.Line{
					{ID: 1, ItemID: 100, SKU: "ABC123", Name: "Widget", Quantity: 2, PricePerUnit: usd("10.00")},
					{ID: 2, ItemID: 200, SKU: "XYZ", Name: "Gadget", Quantity: 1, PricePerUnit: usd("4.50")},
				},
				CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			},
			"PO-BARE": {
				Code:     "PO-BARE",
				Status:   order.StatusPending,
				Currency: "USD",
				Lines:    []order.Line{{ItemID: 100, SKU: "ABC123", Quantity: 3, PricePerUnit: usd("10.00")}},
			},
		},
		taxes: map[int64]order.TaxRecord{
			9: {ID: 9, Tax: pricing.Tax{Title: "VAT", Percentage: decimal.NewFromInt(10), AppliedBefore: taxBefore}},
		},
	}
	promos := &fakePromotions{
		promos: map[int64]promotion.Promotion{5: {ID: 5, Title: "SAVE10", Kind: promotion.KindCoupon, DiscountPercentage: decimal.NewFromInt(10)}},
		links:  map[int64][]int64{5: {100}},
	}
	return &order.Service{Orders: orders, Promotions: promos, Calc: pricing.NewCalculator(money.DefaultConfig())}, orders
}

func TestGetPricesOnRead(t *testing.T) {
	cases := []struct {
		name      string
		taxBefore bool
		tax       string
		total     string
	}{
		// subtotal 24.50, savings 2.00 (only ABC123 is linked)
		{"tax after discount", false, "2.25", "29.75"},
		{"tax before discount", true, "2.45", "29.95"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := fixture(tc.taxBefore)
			view, err := svc.Get(context.Background(), "PO-1")
			require.NoError(t, err)
			require.Equal(t, "24.50", view.Summary.Subtotal.StringFixed(2))
			require.Equal(t, "2.00", view.Summary.Savings.StringFixed(2))
			require.Equal(t, tc.tax, view.Summary.Tax.StringFixed(2))
			require.Equal(t, "5.00", view.Summary.Shipping.StringFixed(2))
			require.Equal(t, tc.total, view.Summary.GrandTotal.StringFixed(2))
			require.Equal(t, "18.00", view.Lines[0].Totals.Total.StringFixed(2))
			require.Equal(t, "4.50", view.Lines[1].Totals.Total.StringFixed(2))
		})
	}
}

func TestGetWithoutLinks(t *testing.T) {
	svc, _ := fixture(false)
	view, err := svc.Get(context.Background(), "PO-BARE")
	require.NoError(t, err)
	require.Nil(t, view.Promotion)
	require.Nil(t, view.Tax)
	require.Equal(t, "30.00", view.Summary.GrandTotal.StringFixed(2))
	require.True(t, view.Summary.Savings.IsZero())
}

func TestGetUsesFrozenPrices(t *testing.T) {
	svc, orders := fixture(false)
	first, err := svc.Get(context.Background(), "PO-BARE")
	require.NoError(t, err)

	// catalog repricing has no effect: only the stored line price is read
	again, err := svc.Get(context.Background(), "PO-BARE")
	require.NoError(t, err)
	require.True(t, first.Summary.GrandTotal.Equal(again.Summary.GrandTotal))

	po := orders.orders["PO-BARE"]
	po.Shipping = &order.ShippingRecord{Method: "express", Amount: usd("7.00")}
	orders.orders["PO-BARE"] = po
	withShipping, err := svc.Get(context.Background(), "PO-BARE")
	require.NoError(t, err)
	require.Equal(t, "37.00", withShipping.Summary.GrandTotal.StringFixed(2))
}

func TestGetNotFound(t *testing.T) {
	svc, _ := fixture(false)
	_, err := svc.Get(context.Background(), "PO-404")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestHandlerGet(t *testing.T) {
	svc, _ := fixture(false)
	h := &order.Handler{Svc: svc, Money: money.DefaultConfig()}
	r := chi.NewRouter()
	r.Get("/api/v1/orders/{code}", h.Get)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/PO-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "PO-1", body["code"])
	require.Equal(t, "processing", body["status"])
	require.Equal(t, "24.50", body["subtotal_amount"])
	require.Equal(t, "2.00", body["savings_amount"])
	require.Equal(t, "29.75", body["grand_total_amount"])
	require.Equal(t, "SAVE10", body["promotion_title"])
	require.Equal(t, "VAT", body["tax_title"])
	require.Equal(t, "$", body["price_currency_symbol"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/PO-404", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `"default_code":"not_found"`))
}

func TestNewCode(t *testing.T) {
	a, b := order.NewCode(), order.NewCode()
	require.NotEqual(t, a, b)
	require.True(t, strings.HasPrefix(a, "PO-"))
	require.Len(t, a, 19)
}
