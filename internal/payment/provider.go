package payment

import (
	"context"

	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// Details carries the payment method chosen at checkout. Token is the opaque
// reference issued by the client-side payment widget.
type Details struct {
	Method string `json:"method" validate:"required"`
	Token  string `json:"token" validate:"required,min=8"`
}

// Validator checks payment details before an order is persisted. Invalid input is
// reported as common.ErrInvalidPayment.
type Validator interface {
	Validate(ctx context.Context, d Details, billing shipping.Address) error
}
