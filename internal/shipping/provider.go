package shipping

import (
	"context"

	"github.com/noah-isme/toko-storefront/internal/money"
)

// Address is a postal address used for delivery and billing.
type Address struct {
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`
}

// Details is the shipping selection submitted at checkout.
type Details struct {
	Method  string  `json:"method" validate:"required"`
	Address Address `json:"address"`
}

// Quoter prices a shipping selection. Invalid selections are reported as
// common.ErrInvalidShipping.
type Quoter interface {
	Quote(ctx context.Context, d Details) (money.Money, error)
}
