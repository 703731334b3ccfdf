package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/promotion"
)

// Reader is the read side of the order store.
type Reader interface {
	GetByCode(ctx context.Context, code string) (PurchaseOrder, bool, error)
	FindTaxByID(ctx context.Context, id int64) (TaxRecord, bool, error)
}

// PromotionLookup loads promotions and their item links.
type PromotionLookup interface {
	FindByID(ctx context.Context, id int64) (promotion.Promotion, bool, error)
	ListLinksForPromotion(ctx context.Context, promotionID int64) ([]int64, error)
}

// PricedLine is an order line with its computed totals.
type PricedLine struct {
	Line
	Totals pricing.LineTotal
}

// View is a purchase order priced on read.
type View struct {
	Order     PurchaseOrder
	Promotion *promotion.Promotion
	Tax       *TaxRecord
	Lines     []PricedLine
	Summary   pricing.Summary
}

// Service prices persisted orders.
type Service struct {
	Orders     Reader
	Promotions PromotionLookup
	Calc       pricing.Calculator
}

// Get loads the order by code and computes subtotal, savings, tax and grand total
// from its frozen line prices and current promotion, tax and shipping links.
func (s *Service) Get(ctx context.Context, code string) (View, error) {
	if s == nil || s.Orders == nil || s.Promotions == nil {
		return View{}, errors.New("order service not configured")
	}
	po, ok, err := s.Orders.GetByCode(ctx, code)
	if err != nil {
		return View{}, err
	}
	if !ok {
		return View{}, common.ErrNotFound.With("code", code)
	}
	view := View{Order: po}

	var (
		pct    *decimal.Decimal
		linked map[int64]bool
	)
	if po.PromotionID != nil {
		p, found, err := s.Promotions.FindByID(ctx, *po.PromotionID)
		if err != nil {
			return View{}, err
		}
		if found {
			view.Promotion = &p
			pct = &p.DiscountPercentage
			ids, err := s.Promotions.ListLinksForPromotion(ctx, p.ID)
			if err != nil {
				return View{}, err
			}
			linked = make(map[int64]bool, len(ids))
			for _, id := range ids {
				linked[id] = true
			}
		}
	}

	in := pricing.OrderInput{Currency: po.Currency}
	if po.TaxID != nil {
		tax, found, err := s.Orders.FindTaxByID(ctx, *po.TaxID)
		if err != nil {
			return View{}, err
		}
		if found {
			view.Tax = &tax
			in.Tax = &tax.Tax
		}
	}
	if po.Shipping != nil {
		amount := po.Shipping.Amount
		in.Shipping = &amount
	}

	for _, l := range po.Lines {
		pl := pricing.Line{Base: l.PricePerUnit, Quantity: int64(l.Quantity)}
		if linked[l.ItemID] {
			pl.Percent = pct
		}
		in.Lines = append(in.Lines, pl)
		view.Lines = append(view.Lines, PricedLine{Line: l, Totals: s.Calc.PriceLine(pl)})
	}

	summary, err := s.Calc.Summarize(in)
	if err != nil {
		if errors.Is(err, money.ErrCurrencyMismatch) {
			return View{}, common.ErrCurrencyMismatch.With("code", code).Wrap(err)
		}
		return View{}, fmt.Errorf("price order %s: %w", code, err)
	}
	view.Summary = summary
	return view, nil
}
