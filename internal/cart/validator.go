package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/promotion"
)

// LineInput is one requested cart line. Quantity defaults to 1 when omitted.
type LineInput struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity *int   `json:"quantity,omitempty" validate:"omitempty,gt=0"`
}

// Input wraps the requested lines.
type Input struct {
	Items []LineInput `json:"items" validate:"dive"`
}

// CheckRequest is the cart check payload. Either field may be omitted, not both.
type CheckRequest struct {
	Coupon string `json:"coupon,omitempty"`
	Cart   *Input `json:"cart,omitempty"`
}

// Line is a validated cart line with its resolved prices.
type Line struct {
	Item     catalog.Item
	Quantity int
	// BasePrice is the effective price (deal price if one resolved, else list
	// price). It is the price frozen onto persisted order lines.
	BasePrice money.Money
	// CouponApplied is true when the coupon is linked to this line's item.
	CouponApplied bool
	Totals        pricing.LineTotal
}

// Result is the outcome of a successful cart check.
type Result struct {
	Coupon *promotion.Promotion
	// CouponOnly marks a check that carried a coupon but no cart lines.
	CouponOnly    bool
	Currency      string
	TotalPrice    money.Money
	TotalDiscount money.Money
	Lines         []Line
}

// Promotions is the subset of the promotion resolver used by the validator.
type Promotions interface {
	ResolveCoupon(ctx context.Context, code string, now time.Time) (promotion.Promotion, error)
	EffectivePrice(ctx context.Context, item catalog.Item, now time.Time) (money.Money, error)
	IsLinked(ctx context.Context, p promotion.Promotion, item catalog.Item) (bool, error)
}

// Validator validates cart lines against the catalog and prices them.
type Validator struct {
	Catalog    catalog.Store
	Promotions Promotions
	Calc       pricing.Calculator
	Currency   string
	Now        func() time.Time
}

func (v *Validator) now() time.Time {
	if v != nil && v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Check runs the cart check. Validation is fail-fast: the first violated rule is
// returned and nothing after it is evaluated.
func (v *Validator) Check(ctx context.Context, req CheckRequest) (Result, error) {
	if v == nil || v.Catalog == nil || v.Promotions == nil {
		return Result{}, errors.New("cart validator not configured")
	}
	now := v.now()
	code := strings.TrimSpace(req.Coupon)
	var lines []LineInput
	if req.Cart != nil {
		lines = req.Cart.Items
	}
	if code == "" && len(lines) == 0 {
		return Result{}, common.ErrInvalidCartCheckData
	}

	var coupon *promotion.Promotion
	if code != "" {
		p, err := v.Promotions.ResolveCoupon(ctx, code, now)
		if err != nil {
			return Result{}, err
		}
		coupon = &p
	}

	validated, err := v.validateLines(ctx, lines)
	if err != nil {
		return Result{}, err
	}

	currency := money.NormalizeCode(v.Currency)
	res := Result{
		Coupon:        coupon,
		Currency:      currency,
		TotalPrice:    money.Zero(currency),
		TotalDiscount: money.Zero(currency),
	}
	if len(validated) == 0 {
		res.CouponOnly = true
		return res, nil
	}

	inputs := make([]pricing.Line, 0, len(validated))
	for _, l := range validated {
		priced, err := v.priceLine(ctx, l, coupon, now)
		if err != nil {
			return Result{}, err
		}
		in := pricing.Line{Base: priced.BasePrice, Quantity: int64(priced.Quantity)}
		if priced.CouponApplied {
			in.Percent = &coupon.DiscountPercentage
		}
		inputs = append(inputs, in)
		res.Lines = append(res.Lines, priced)
	}
	sums, err := v.Calc.SumLines(currency, inputs)
	if err != nil {
		return Result{}, common.ErrCurrencyMismatch.Wrap(err)
	}
	res.TotalPrice, res.TotalDiscount = sums.Due, sums.Savings
	if coupon != nil && res.TotalDiscount.IsZero() {
		return Result{}, common.ErrInvalidCouponForCart.With("coupon", coupon.Code)
	}
	return res, nil
}

func (v *Validator) validateLines(ctx context.Context, lines []LineInput) ([]Line, error) {
	out := make([]Line, 0, len(lines))
	for _, in := range lines {
		qty := 1
		if in.Quantity != nil {
			qty = *in.Quantity
		}
		item, ok, err := v.Catalog.FindAvailableItem(ctx, in.SKU)
		if err != nil {
			return nil, fmt.Errorf("catalog lookup %s: %w", in.SKU, err)
		}
		if !ok {
			return nil, common.ErrInvalidProductItemSku.With("sku", in.SKU)
		}
		if !item.AllowsQuantity(qty) {
			return nil, common.ErrInvalidProductItemQty.With("sku", in.SKU).With("quantity", qty)
		}
		out = append(out, Line{Item: item, Quantity: qty})
	}
	return out, nil
}

func (v *Validator) priceLine(ctx context.Context, l Line, coupon *promotion.Promotion, now time.Time) (Line, error) {
	base, err := v.Promotions.EffectivePrice(ctx, l.Item, now)
	if err != nil {
		return Line{}, err
	}
	if base.Currency() != money.NormalizeCode(v.Currency) {
		return Line{}, common.ErrCurrencyMismatch.With("sku", l.Item.SKU)
	}
	var pct *decimal.Decimal
	if coupon != nil {
		linked, err := v.Promotions.IsLinked(ctx, *coupon, l.Item)
		if err != nil {
			return Line{}, err
		}
		if linked {
			pct = &coupon.DiscountPercentage
			l.CouponApplied = true
		}
	}
	l.BasePrice = base
	l.Totals = v.Calc.PriceLine(pricing.Line{Base: base, Quantity: int64(l.Quantity), Percent: pct})
	return l, nil
}
