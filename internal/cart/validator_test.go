package cart_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/promotion"
)

func TestCheckRequiresCouponOrCart(t *testing.T) {
	v := newValidator(fakeCatalog{}, &fakePromotions{})
	for _, req := range []cart.CheckRequest{
		{},
		{Coupon: "   "},
		{Cart: &cart.Input{}},
	} {
		_, err := v.Check(context.Background(), req)
		require.ErrorIs(t, err, common.ErrInvalidCartCheckData)
	}
}

func TestCheckCouponResolvedBeforeLines(t *testing.T) {
	v := newValidator(fakeCatalog{}, &fakePromotions{})
	_, err := v.Check(context.Background(), cart.CheckRequest{
		Coupon: "BOGUS",
		Cart:   &cart.Input{Items: []cart.LineInput{{SKU: "MISSING"}}},
	})
	require.ErrorIs(t, err, common.ErrInvalidCouponCode)
	appErr, _ := common.AsAppError(err)
	require.Equal(t, "BOGUS", appErr.Fields["coupon"])
}

func TestCheckQuantityBoundaries(t *testing.T) {
	items := fakeCatalog{
		"LIMITED": item(1, "LIMITED", "5.00", 10, 4),
		"SCARCE":  item(2, "SCARCE", "5.00", 3, 10),
	}
	v := newValidator(items, &fakePromotions{})
	cases := []struct {
		sku string
		qty int
		ok  bool
	}{
		{"LIMITED", 4, true},
		{"LIMITED", 5, false},
		{"SCARCE", 3, true},
		{"SCARCE", 4, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s-%d", tc.sku, tc.qty), func(t *testing.T) {
			_, err := v.Check(context.Background(), cart.CheckRequest{
				Cart: &cart.Input{Items: []cart.LineInput{{SKU: tc.sku, Quantity: qty(tc.qty)}}},
			})
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, common.ErrInvalidProductItemQty)
			appErr, _ := common.AsAppError(err)
			require.Equal(t, tc.sku, appErr.Fields["sku"])
			require.Equal(t, tc.qty, appErr.Fields["quantity"])
		})
	}
}

func TestCheckDefaultsQuantityToOne(t *testing.T) {
	v := newValidator(fakeCatalog{"ABC123": item(1, "ABC123", "10.00", 10, 10)}, &fakePromotions{})
	res, err := v.Check(context.Background(), cart.CheckRequest{Cart: &cart.Input{Items: []cart.LineInput{{SKU: "ABC123"}}}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Lines[0].Quantity)
	require.Equal(t, "10.00", res.TotalPrice.StringFixed(2))
}

func TestCheckUnavailableItemsAreUnknown(t *testing.T) {
	noSupplier := item(1, "NOSUP", "1.00", 5, 5)
	noSupplier.SupplierAvailable = false
	noStock := item(2, "NOSTOCK", "1.00", 0, 0)
	v := newValidator(fakeCatalog{"NOSUP": noSupplier, "NOSTOCK": noStock}, &fakePromotions{})
	for _, sku := range []string{"NOSUP", "NOSTOCK"} {
		_, err := v.Check(context.Background(), cart.CheckRequest{Cart: &cart.Input{Items: []cart.LineInput{{SKU: sku}}}})
		require.ErrorIs(t, err, common.ErrInvalidProductItemSku)
	}
}

func TestCheckCouponAppliesOnDealPrice(t *testing.T) {
	items := fakeCatalog{
		"ABC123": item(1, "ABC123", "10.00", 10, 10),
		"XYZ":    item(2, "XYZ", "4.00", 10, 10),
	}
	promos := &fakePromotions{
		promos: []promotion.Promotion{deal(10, "20"), coupon(11, "SAVE10", "10")},
		links:  map[int64][]int64{10: {1}, 11: {1}},
	}
	v := newValidator(items, promos)

	res, err := v.Check(context.Background(), cart.CheckRequest{
		Coupon: "SAVE10",
		Cart: &cart.Input{Items: []cart.LineInput{
			{SKU: "ABC123", Quantity: qty(3)},
			{SKU: "XYZ", Quantity: qty(2)},
		}},
	})
	require.NoError(t, err)
	// deal: 10.00 -> 8.00; coupon on 8.00 -> 7.20; 3 * 7.20 + 2 * 4.00
	require.Equal(t, "29.60", res.TotalPrice.StringFixed(2))
	require.Equal(t, "2.40", res.TotalDiscount.StringFixed(2))
	require.True(t, res.Lines[0].CouponApplied)
	require.Equal(t, "8.00", res.Lines[0].BasePrice.StringFixed(2))
	require.False(t, res.Lines[1].CouponApplied)
}

func TestCheckConservation(t *testing.T) {
	prices := []string{"0.01", "0.05", "1.15", "9.99", "10.00", "19.95", "33.33", "1234.56"}
	pcts := []string{"0.5", "5", "12.5", "15", "33", "50", "99.99"}
	for _, price := range prices {
		for _, pct := range pcts {
			items := fakeCatalog{"SKU": item(1, "SKU", price, 10, 10)}
			promos := &fakePromotions{promos: []promotion.Promotion{coupon(2, "C", pct)}, links: map[int64][]int64{2: {1}}}
			res, err := newValidator(items, promos).Check(context.Background(), cart.CheckRequest{
				Coupon: "C",
				Cart:   &cart.Input{Items: []cart.LineInput{{SKU: "SKU", Quantity: qty(7)}}},
			})
			if err != nil {
				// discount rounded to zero: coupon does not qualify
				require.ErrorIs(t, err, common.ErrInvalidCouponForCart, "%s@%s", price, pct)
				continue
			}
			sum, err := res.TotalPrice.Add(res.TotalDiscount)
			require.NoError(t, err)
			require.True(t, sum.Equal(money.MustParse(price, "USD").Mul(7)), "%s@%s", price, pct)
		}
	}
}

func TestCheckCurrencyMismatch(t *testing.T) {
	euro := item(1, "EURO", "1.00", 5, 5)
	euro.ListPrice = money.MustParse("1.00", "EUR")
	v := newValidator(fakeCatalog{"EURO": euro}, &fakePromotions{})
	_, err := v.Check(context.Background(), cart.CheckRequest{Cart: &cart.Input{Items: []cart.LineInput{{SKU: "EURO"}}}})
	require.ErrorIs(t, err, common.ErrCurrencyMismatch)
}

func TestCheckRoundsSubCentTotal(t *testing.T) {
	v := newValidator(fakeCatalog{"BOLT": item(1, "BOLT", "10.005", 10, 10)}, &fakePromotions{})
	res, err := v.Check(context.Background(), cart.CheckRequest{Cart: &cart.Input{Items: []cart.LineInput{{SKU: "BOLT"}}}})
	require.NoError(t, err)
	require.Equal(t, "10.01", res.TotalPrice.Amount().String())
	require.Equal(t, "10.005", res.Lines[0].BasePrice.Amount().String())
}
