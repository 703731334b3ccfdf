package cart_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/promotion"
)

func scenarioHandler() *cart.Handler {
	items := fakeCatalog{
		"ABC123": item(1, "ABC123", "10.00", 10, 10),
		"OTHER":  item(2, "OTHER", "3.00", 10, 10),
	}
	promos := &fakePromotions{
		promos: []promotion.Promotion{coupon(20, "SAVE10", "10")},
		links:  map[int64][]int64{20: {1}},
	}
	return &cart.Handler{Validator: newValidator(items, promos), Money: money.DefaultConfig()}
}

func postCheck(t *testing.T, h *cart.Handler, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/check", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Check(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestCheckScenarios(t *testing.T) {
	h := scenarioHandler()

	t.Run("A no coupon", func(t *testing.T) {
		status, body := postCheck(t, h, `{"cart":{"items":[{"sku":"ABC123","quantity":2}]}}`)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "20.00", body["total_price_amount"])
		require.Equal(t, "0.00", body["total_discount_amount"])
		require.Equal(t, "USD", body["price_currency"])
		require.Equal(t, "$", body["price_currency_symbol"])
		require.Nil(t, body["coupon_title"])
		require.Nil(t, body["coupon_summary"])
		require.Nil(t, body["coupon_discount"])
		items := body["items"].([]any)
		require.Len(t, items, 1)
		require.Equal(t, "ABC123", items[0].(map[string]any)["sku"])
	})

	t.Run("B linked coupon", func(t *testing.T) {
		status, body := postCheck(t, h, `{"coupon":"SAVE10","cart":{"items":[{"sku":"ABC123","quantity":2}]}}`)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "18.00", body["total_price_amount"])
		require.Equal(t, "2.00", body["total_discount_amount"])
		require.Equal(t, "SAVE10 title", body["coupon_title"])
		require.Equal(t, "10%", body["coupon_discount"])
	})

	t.Run("C coupon not linked", func(t *testing.T) {
		status, body := postCheck(t, h, `{"coupon":"SAVE10","cart":{"items":[{"sku":"OTHER","quantity":1}]}}`)
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "invalid_coupon_for_cart", body["default_code"])
		require.NotEmpty(t, body["message"])
	})

	t.Run("D unknown sku", func(t *testing.T) {
		status, body := postCheck(t, h, `{"cart":{"items":[{"sku":"NOPE","quantity":1}]}}`)
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "invalid_product_item_sku", body["default_code"])
		require.Equal(t, "NOPE", body["sku"])
	})

	t.Run("E quantity over stock and limit", func(t *testing.T) {
		status, body := postCheck(t, h, `{"cart":{"items":[{"sku":"ABC123","quantity":15}]}}`)
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "invalid_product_item_quantity", body["default_code"])
		require.Equal(t, "ABC123", body["sku"])
		require.EqualValues(t, 15, body["quantity"])
	})

	t.Run("F coupon only", func(t *testing.T) {
		status, body := postCheck(t, h, `{"coupon":"SAVE10"}`)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "SAVE10 title", body["coupon_title"])
		require.Equal(t, "SAVE10 summary", body["coupon_summary"])
		require.Equal(t, "10%", body["coupon_discount"])
		require.Contains(t, body, "cart")
		require.Nil(t, body["cart"])
		require.NotContains(t, body, "total_price_amount")
	})
}

func TestCheckRejectsMalformedPayload(t *testing.T) {
	h := scenarioHandler()

	status, body := postCheck(t, h, `{}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid_cart_check_data", body["default_code"])

	status, body = postCheck(t, h, `{"cart":{"items":[{"quantity":1}]}}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid", body["default_code"])

	status, body = postCheck(t, h, `{"cart":{"items":[{"sku":"ABC123","quantity":0}]}}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid", body["default_code"])
}
