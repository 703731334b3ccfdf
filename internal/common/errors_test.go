package common_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/common"
)

func TestAppErrorIsMatchesByCode(t *testing.T) {
	err := common.ErrInvalidProductItemSku.With("sku", "ABC123")
	wrapped := fmt.Errorf("cart: %w", err)
	require.True(t, errors.Is(wrapped, common.ErrInvalidProductItemSku))
	require.False(t, errors.Is(wrapped, common.ErrInvalidCouponCode))

	// the sentinel is never mutated by With
	require.Empty(t, common.ErrInvalidProductItemSku.Fields)
}

func TestTagErrorOnlyTagsAppErrors(t *testing.T) {
	tagged := common.TagError(common.ErrInvalidCouponCode.With("coupon", "X"), "cart")
	appErr, ok := common.AsAppError(tagged)
	require.True(t, ok)
	require.Equal(t, "cart", appErr.API)
	require.Equal(t, "X", appErr.Fields["coupon"])

	plain := errors.New("boom")
	require.Equal(t, plain, common.TagError(plain, "cart"))
}

func TestWriteError(t *testing.T) {
	t.Run("app error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ok := common.WriteError(rec, common.ErrInvalidProductItemQty.With("sku", "ABC123").With("quantity", 15).Tagged("cart"))
		require.True(t, ok)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "invalid_product_item_quantity", body["default_code"])
		require.Equal(t, "ABC123", body["sku"])
		require.EqualValues(t, 15, body["quantity"])
		require.Equal(t, "cart", body["api"])
		require.NotEmpty(t, body["message"])
	})

	t.Run("conflict", func(t *testing.T) {
		rec := httptest.NewRecorder()
		common.WriteError(rec, common.ErrCurrencyMismatch)
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("internal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ok := common.WriteError(rec, errors.New("database unreachable"))
		require.False(t, ok)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.NotContains(t, rec.Body.String(), "database unreachable")
		require.Contains(t, rec.Body.String(), `"default_code":"error"`)
	})
}
