package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/money"
)

var hundred = decimal.NewFromInt(100)

// Calculator applies discount, tax and total rules at the configured precision.
type Calculator struct {
	Money money.Config
}

// NewCalculator constructs a Calculator bound to the provided money settings.
func NewCalculator(cfg money.Config) Calculator {
	return Calculator{Money: cfg}
}

// DiscountAmount returns round(amount * pct / 100).
func (c Calculator) DiscountAmount(amount, pct decimal.Decimal) decimal.Decimal {
	return c.Money.Round(amount.Mul(clampPercent(pct)).Div(hundred))
}

// DiscountedAmount returns amount - round(amount * pct / 100). The discount portion
// is rounded before subtracting; rounding the discounted price directly gives
// different results at half-cent boundaries.
func (c Calculator) DiscountedAmount(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Sub(c.DiscountAmount(amount, pct))
}

// DiscountedPrice is DiscountedAmount applied to a Money value.
func (c Calculator) DiscountedPrice(price money.Money, pct decimal.Decimal) money.Money {
	return money.New(c.DiscountedAmount(price.Amount(), pct), price.Currency())
}

// Line describes a priced line item. Percent is nil when no promotion applies.
type Line struct {
	Base     money.Money
	Quantity int64
	Percent  *decimal.Decimal
}

// LineTotal holds the computed figures for a single line.
type LineTotal struct {
	UnitPrice money.Money
	Original  money.Money
	Total     money.Money
	Discount  money.Money
}

// PriceLine computes a line's totals. Original == Total + Discount holds exactly.
func (c Calculator) PriceLine(l Line) LineTotal {
	unit := l.Base
	if l.Percent != nil {
		unit = c.DiscountedPrice(l.Base, *l.Percent)
	}
	original := l.Base.Mul(l.Quantity)
	total := unit.Mul(l.Quantity)
	discount := money.New(original.Amount().Sub(total.Amount()), l.Base.Currency())
	return LineTotal{
		UnitPrice: unit,
		Original:  original,
		Total:     total,
		Discount:  discount,
	}
}

// Tax is the tax policy linked to an order.
type Tax struct {
	Title      string
	Percentage decimal.Decimal
	// AppliedBefore computes tax on the pre-discount subtotal; otherwise tax is
	// computed on the subtotal after savings.
	AppliedBefore bool
}

// OrderInput describes a persisted order for pricing.
type OrderInput struct {
	Currency string
	Lines    []Line
	Tax      *Tax
	Shipping *money.Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal   money.Money
	Savings    money.Money
	Tax        money.Money
	Shipping   money.Money
	GrandTotal money.Money
}

// Totals are the line sums shared by cart checks and order reads.
type Totals struct {
	// Subtotal is the sum of undiscounted line prices, rounded.
	Subtotal money.Money
	Savings  money.Money
	// Due is Subtotal minus Savings.
	Due money.Money
}

// SumLines prices lines and sums them at the configured precision. Discounts are
// already rounded per unit, so only the subtotal needs rounding; Due then agrees
// with Summarize for the same lines.
func (c Calculator) SumLines(currency string, lines []Line) (Totals, error) {
	currency = money.NormalizeCode(currency)
	subtotal := money.Zero(currency)
	savings := money.Zero(currency)
	var err error
	for i, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		if l.Base.Currency() != currency {
			return Totals{}, fmt.Errorf("line %d: %w: %s != %s", i, money.ErrCurrencyMismatch, l.Base.Currency(), currency)
		}
		lt := c.PriceLine(l)
		if subtotal, err = subtotal.Add(lt.Original); err != nil {
			return Totals{}, err
		}
		if savings, err = savings.Add(lt.Discount); err != nil {
			return Totals{}, err
		}
	}
	subtotal = subtotal.Round(c.Money.DecimalPlaces)
	due, err := subtotal.Sub(savings)
	if err != nil {
		return Totals{}, err
	}
	return Totals{Subtotal: subtotal, Savings: savings, Due: due}, nil
}

// Summarize computes subtotal, savings, tax and grand total from frozen line prices.
func (c Calculator) Summarize(in OrderInput) (Summary, error) {
	currency := money.NormalizeCode(in.Currency)
	sums, err := c.SumLines(currency, in.Lines)
	if err != nil {
		return Summary{}, err
	}
	subtotal, savings, afterDiscount := sums.Subtotal, sums.Savings, sums.Due

	tax := money.Zero(currency)
	if in.Tax != nil {
		base := afterDiscount
		if in.Tax.AppliedBefore {
			base = subtotal
		}
		tax = money.New(c.Money.Round(base.Amount().Mul(clampPercent(in.Tax.Percentage)).Div(hundred)), currency)
	}

	shipping := money.Zero(currency)
	if in.Shipping != nil {
		if in.Shipping.Currency() != currency {
			return Summary{}, fmt.Errorf("shipping: %w: %s != %s", money.ErrCurrencyMismatch, in.Shipping.Currency(), currency)
		}
		shipping = *in.Shipping
	}

	total, err := afterDiscount.Add(tax)
	if err != nil {
		return Summary{}, err
	}
	if total, err = total.Add(shipping); err != nil {
		return Summary{}, err
	}
	return Summary{
		Subtotal:   subtotal,
		Savings:    savings,
		Tax:        tax,
		Shipping:   shipping,
		GrandTotal: total,
	}, nil
}

func clampPercent(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}
