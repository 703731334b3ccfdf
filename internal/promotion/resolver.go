package promotion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/pricing"
)

// Resolver decides which promotions apply to catalog items and carts. It has no
// side effects: the same inputs always resolve to the same promotion.
type Resolver struct {
	Store Store
	Calc  pricing.Calculator
}

// NewResolver constructs a Resolver.
func NewResolver(s Store, calc pricing.Calculator) *Resolver {
	return &Resolver{Store: s, Calc: calc}
}

func (r *Resolver) ready() error {
	if r == nil || r.Store == nil {
		return errors.New("promotion resolver not configured")
	}
	return nil
}

// ResolveDeal returns the most recently created effective deal linked to item, or
// nil when none applies. Recency is by ID, not by discount size.
func (r *Resolver) ResolveDeal(ctx context.Context, item catalog.Item, now time.Time) (*Promotion, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	deals, err := r.Store.ListDealsForItem(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve deal for %s: %w", item.SKU, err)
	}
	var best *Promotion
	for i := range deals {
		d := deals[i]
		if d.Kind != KindDeal || !d.Effective(now) {
			continue
		}
		if best == nil || d.ID > best.ID {
			best = &d
		}
	}
	return best, nil
}

// ResolveCoupon looks up an active coupon by exact code and checks its window and
// usage. Any failure is reported as an invalid coupon code echoing the code.
func (r *Resolver) ResolveCoupon(ctx context.Context, code string, now time.Time) (Promotion, error) {
	if err := r.ready(); err != nil {
		return Promotion{}, err
	}
	p, ok, err := r.Store.FindCouponByCode(ctx, code)
	if err != nil {
		return Promotion{}, fmt.Errorf("resolve coupon: %w", err)
	}
	if !ok || p.Kind != KindCoupon {
		return Promotion{}, common.ErrInvalidCouponCode.With("coupon", code)
	}
	if err := p.Validate(now); err != nil {
		return Promotion{}, common.ErrInvalidCouponCode.With("coupon", code).Wrap(err)
	}
	return p, nil
}

// DealPrice returns the item's list price discounted by its resolved deal. The
// boolean is false when no deal applies.
func (r *Resolver) DealPrice(ctx context.Context, item catalog.Item, now time.Time) (money.Money, bool, error) {
	deal, err := r.ResolveDeal(ctx, item, now)
	if err != nil || deal == nil {
		return money.Money{}, false, err
	}
	return r.Calc.DiscountedPrice(item.ListPrice, deal.DiscountPercentage), true, nil
}

// EffectivePrice is the deal price when a deal applies, otherwise the list price.
func (r *Resolver) EffectivePrice(ctx context.Context, item catalog.Item, now time.Time) (money.Money, error) {
	price, ok, err := r.DealPrice(ctx, item, now)
	if err != nil {
		return money.Money{}, err
	}
	if !ok {
		return item.ListPrice, nil
	}
	return price, nil
}

// IsLinked reports whether p has a recorded link to item.
func (r *Resolver) IsLinked(ctx context.Context, p Promotion, item catalog.Item) (bool, error) {
	if err := r.ready(); err != nil {
		return false, err
	}
	linked, err := r.Store.IsLinked(ctx, p.ID, item.ID)
	if err != nil {
		return false, fmt.Errorf("promotion %d link to %s: %w", p.ID, item.SKU, err)
	}
	return linked, nil
}
