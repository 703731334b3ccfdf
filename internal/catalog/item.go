package catalog

import (
	"errors"
	"strings"
	"unicode"

	"github.com/noah-isme/toko-storefront/internal/money"
)

var (
	// ErrInvalidItem is returned by NewItem when the parameters cannot form an item.
	ErrInvalidItem = errors.New("catalog: invalid item")
)

// Item is a purchasable catalog unit (a product variant from one supplier).
type Item struct {
	ID                int64       `json:"id"`
	SKU               string      `json:"sku"`
	ProductID         int64       `json:"product_id"`
	SupplierID        int64       `json:"supplier_id"`
	Name              string      `json:"name"`
	ListPrice         money.Money `json:"list_price"`
	Stock             int         `json:"stock"`
	LimitPerOrder     int         `json:"limit_per_order"`
	SupplierAvailable bool        `json:"supplier_available"`
	ProductAvailable  bool        `json:"product_available"`
}

// Available reports whether the item can be sold at all.
func (i Item) Available() bool {
	return i.Stock > 0 && i.SupplierAvailable && i.ProductAvailable
}

// AllowsQuantity reports whether qty fits within both the per-order limit and stock.
func (i Item) AllowsQuantity(qty int) bool {
	return qty > 0 && qty <= i.LimitPerOrder && qty <= i.Stock
}

// NewItemParams describes an item about to be created.
type NewItemParams struct {
	ProductID         int64
	ProductCode       string
	SupplierID        int64
	Name              string
	Attributes        []string
	ListPrice         money.Money
	Stock             int
	LimitPerOrder     *int
	SupplierAvailable bool
	ProductAvailable  bool
}

// NewItem builds an Item, deriving its SKU and per-order limit. The limit falls
// back to stock when unset or larger than stock, and never exceeds limitCap when
// limitCap is positive. The limit is computed once here and does not track later
// stock changes.
func NewItem(p NewItemParams, limitCap int) (Item, error) {
	sku := DeriveSKU(p.ProductCode, p.Attributes...)
	if sku == "" {
		return Item{}, errors.Join(ErrInvalidItem, errors.New("product code required"))
	}
	if p.Stock < 0 {
		return Item{}, errors.Join(ErrInvalidItem, errors.New("stock must not be negative"))
	}
	if p.ListPrice.Amount().IsNegative() {
		return Item{}, errors.Join(ErrInvalidItem, errors.New("list price must not be negative"))
	}
	limit := p.Stock
	if p.LimitPerOrder != nil && *p.LimitPerOrder > 0 && *p.LimitPerOrder <= p.Stock {
		limit = *p.LimitPerOrder
	}
	if limitCap > 0 && limit > limitCap {
		limit = limitCap
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = sku
	}
	return Item{
		SKU:               sku,
		ProductID:         p.ProductID,
		SupplierID:        p.SupplierID,
		Name:              name,
		ListPrice:         p.ListPrice,
		Stock:             p.Stock,
		LimitPerOrder:     limit,
		SupplierAvailable: p.SupplierAvailable,
		ProductAvailable:  p.ProductAvailable,
	}, nil
}

// DeriveSKU joins the product code and attribute values into an upper-case SKU.
// Runs of characters other than letters and digits collapse to a single dash.
func DeriveSKU(productCode string, attrs ...string) string {
	parts := append([]string{productCode}, attrs...)
	var b strings.Builder
	pendingDash := false
	for _, part := range parts {
		for _, r := range strings.ToUpper(part) {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				if pendingDash && b.Len() > 0 {
					b.WriteByte('-')
				}
				pendingDash = false
				b.WriteRune(r)
				continue
			}
			pendingDash = true
		}
		pendingDash = true
	}
	return b.String()
}
