package promotion_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/promotion"
)

type memStore struct {
	promos []promotion.Promotion
	links  map[int64][]int64
	err    error
}

func (m *memStore) FindCouponByCode(_ context.Context, code string) (promotion.Promotion, bool, error) {
	if m.err != nil {
		return promotion.Promotion{}, false, m.err
	}
	for _, p := range m.promos {
		if p.Kind == promotion.KindCoupon && p.Code == code && p.IsActive {
			return p, true, nil
		}
	}
	return promotion.Promotion{}, false, nil
}

func (m *memStore) ListDealsForItem(_ context.Context, itemID int64) ([]promotion.Promotion, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []promotion.Promotion
	for _, p := range m.promos {
		if p.Kind == promotion.KindDeal && m.linked(p.ID, itemID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) IsLinked(_ context.Context, promotionID, itemID int64) (bool, error) {
	return m.linked(promotionID, itemID), m.err
}

func (m *memStore) linked(promotionID, itemID int64) bool {
	for _, id := range m.links[promotionID] {
		if id == itemID {
			return true
		}
	}
	return false
}

var (
	start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mid   = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
)

func promo(id int64, kind promotion.Kind, pct string) promotion.Promotion {
	return promotion.Promotion{
		ID:                 id,
		Code:               "",
		Title:              "Promo",
		Kind:               kind,
		DiscountPercentage: decimal.RequireFromString(pct),
		StartsAt:           start,
		EndsAt:             end,
		IsActive:           true,
		IsUnlimitedUse:     true,
	}
}

func widget() catalog.Item {
	return catalog.Item{ID: 7, SKU: "ABC123", ListPrice: money.MustParse("10.00", "USD"), Stock: 10, LimitPerOrder: 10, SupplierAvailable: true, ProductAvailable: true}
}

func newResolver(s promotion.Store) *promotion.Resolver {
	return promotion.NewResolver(s, pricing.NewCalculator(money.DefaultConfig()))
}

func int32Ptr(v int32) *int32 { return &v }

func TestValidateWindowIsHalfOpen(t *testing.T) {
	p := promo(1, promotion.KindDeal, "10")
	require.NoError(t, p.Validate(start))
	require.NoError(t, p.Validate(end.Add(-time.Nanosecond)))
	require.ErrorIs(t, p.Validate(end), promotion.ErrExpired)
	require.ErrorIs(t, p.Validate(start.Add(-time.Nanosecond)), promotion.ErrNotStarted)
}

func TestValidateUsage(t *testing.T) {
	p := promo(1, promotion.KindCoupon, "10")
	p.IsUnlimitedUse = false
	p.UsageCap = int32Ptr(3)
	p.UsedCount = 2
	require.NoError(t, p.Validate(mid))

	p.UsedCount = 3
	require.ErrorIs(t, p.Validate(mid), promotion.ErrUsageLimitReached)

	p.IsUnlimitedUse = true
	require.NoError(t, p.Validate(mid))

	p.IsUnlimitedUse = false
	p.UsageCap = nil
	require.NoError(t, p.Validate(mid))

	p.IsActive = false
	require.ErrorIs(t, p.Validate(mid), promotion.ErrInactive)
}

func TestDiscountLabel(t *testing.T) {
	require.Equal(t, "10%", promo(1, promotion.KindCoupon, "10.00").DiscountLabel())
	require.Equal(t, "12.5%", promo(1, promotion.KindCoupon, "12.50").DiscountLabel())
}

func TestResolveDealPicksLatestEffective(t *testing.T) {
	older := promo(3, promotion.KindDeal, "50")
	newer := promo(5, promotion.KindDeal, "5")
	expired := promo(9, promotion.KindDeal, "30")
	expired.EndsAt = mid
	unlinked := promo(11, promotion.KindDeal, "20")

	s := &memStore{
		promos: []promotion.Promotion{newer, expired, older, unlinked},
		links:  map[int64][]int64{3: {7}, 5: {7}, 9: {7}, 11: {8}},
	}
	r := newResolver(s)
	ctx := context.Background()

	first, err := r.ResolveDeal(ctx, widget(), mid)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.EqualValues(t, 5, first.ID)

	second, err := r.ResolveDeal(ctx, widget(), mid)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	price, ok, err := r.DealPrice(ctx, widget(), mid)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "9.50", price.StringFixed(2))
}

func TestResolveDealWindowBoundary(t *testing.T) {
	s := &memStore{promos: []promotion.Promotion{promo(1, promotion.KindDeal, "10")}, links: map[int64][]int64{1: {7}}}
	r := newResolver(s)

	atStart, err := r.ResolveDeal(context.Background(), widget(), start)
	require.NoError(t, err)
	require.NotNil(t, atStart)

	atEnd, err := r.ResolveDeal(context.Background(), widget(), end)
	require.NoError(t, err)
	require.Nil(t, atEnd)

	price, err := r.EffectivePrice(context.Background(), widget(), end)
	require.NoError(t, err)
	require.True(t, price.Equal(widget().ListPrice))
}

func TestResolveCoupon(t *testing.T) {
	save10 := promo(2, promotion.KindCoupon, "10")
	save10.Code = "SAVE10"
	capped := promo(4, promotion.KindCoupon, "10")
	capped.Code = "USEDUP"
	capped.IsUnlimitedUse = false
	capped.UsageCap = int32Ptr(1)
	capped.UsedCount = 1

	r := newResolver(&memStore{promos: []promotion.Promotion{save10, capped}})
	ctx := context.Background()

	p, err := r.ResolveCoupon(ctx, "SAVE10", mid)
	require.NoError(t, err)
	require.EqualValues(t, 2, p.ID)

	for _, code := range []string{"save10", "NOPE", "USEDUP"} {
		_, err := r.ResolveCoupon(ctx, code, mid)
		require.ErrorIs(t, err, common.ErrInvalidCouponCode, code)
		appErr, ok := common.AsAppError(err)
		require.True(t, ok)
		require.Equal(t, code, appErr.Fields["coupon"])
	}

	_, err = r.ResolveCoupon(ctx, "SAVE10", end)
	require.ErrorIs(t, err, common.ErrInvalidCouponCode)
	require.ErrorIs(t, err, promotion.ErrExpired)
}

func TestResolverPropagatesStoreFailure(t *testing.T) {
	boom := errors.New("db down")
	r := newResolver(&memStore{err: boom})
	_, err := r.ResolveCoupon(context.Background(), "SAVE10", mid)
	require.ErrorIs(t, err, boom)
	require.False(t, common.IsAppError(err))

	_, err = r.ResolveDeal(context.Background(), widget(), mid)
	require.ErrorIs(t, err, boom)
}
