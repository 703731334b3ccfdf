package cart_test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/promotion"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeCatalog map[string]catalog.Item

func (f fakeCatalog) FindAvailableItem(_ context.Context, sku string) (catalog.Item, bool, error) {
	item, ok := f[sku]
	if !ok || !item.Available() {
		return catalog.Item{}, false, nil
	}
	return item, true, nil
}

type fakePromotions struct {
	promos []promotion.Promotion
	links  map[int64][]int64
}

func (f *fakePromotions) FindCouponByCode(_ context.Context, code string) (promotion.Promotion, bool, error) {
	for _, p := range f.promos {
		if p.Kind == promotion.KindCoupon && p.Code == code && p.IsActive {
			return p, true, nil
		}
	}
	return promotion.Promotion{}, false, nil
}

func (f *fakePromotions) ListDealsForItem(_ context.Context, itemID int64) ([]promotion.Promotion, error) {
	var out []promotion.Promotion
	for _, p := range f.promos {
		if p.Kind == promotion.KindDeal && f.linked(p.ID, itemID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePromotions) IsLinked(_ context.Context, promotionID, itemID int64) (bool, error) {
	return f.linked(promotionID, itemID), nil
}

func (f *fakePromotions) linked(promotionID, itemID int64) bool {
	for _, id := range f.links[promotionID] {
		if id == itemID {
			return true
		}
	}
	return false
}

func item(id int64, sku, price string, stock, limit int) catalog.Item {
	return catalog.Item{
		ID:                id,
		SKU:               sku,
		Name:              sku,
		ListPrice:         money.MustParse(price, "USD"),
		Stock:             stock,
		LimitPerOrder:     limit,
		SupplierAvailable: true,
		ProductAvailable:  true,
	}
}

func coupon(id int64, code, pct string) promotion.Promotion {
	return promotion.Promotion{
		ID:                 id,
		Code:               code,
		Title:              code + " title",
		Summary:            code + " summary",
		Kind:               promotion.KindCoupon,
		DiscountPercentage: decimal.RequireFromString(pct),
		StartsAt:           fixedNow.Add(-24 * time.Hour),
		EndsAt:             fixedNow.Add(24 * time.Hour),
		IsActive:           true,
		IsUnlimitedUse:     true,
	}
}

func deal(id int64, pct string) promotion.Promotion {
	p := coupon(id, "", pct)
	p.Kind = promotion.KindDeal
	p.Title = "Deal"
	return p
}

func newValidator(items fakeCatalog, promos *fakePromotions) *cart.Validator {
	calc := pricing.NewCalculator(money.DefaultConfig())
	return &cart.Validator{
		Catalog:    items,
		Promotions: promotion.NewResolver(promos, calc),
		Calc:       calc,
		Currency:   "USD",
		Now:        func() time.Time { return fixedNow },
	}
}

func qty(n int) *int { return &n }
