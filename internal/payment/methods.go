package payment

import (
	"context"
	"strings"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// MethodValidator accepts a fixed set of payment methods.
type MethodValidator struct {
	methods map[string]struct{}
}

// NewMethodValidator builds a validator allowing the given methods (case-insensitive).
func NewMethodValidator(methods ...string) *MethodValidator {
	v := &MethodValidator{methods: make(map[string]struct{}, len(methods))}
	for _, m := range methods {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			v.methods[m] = struct{}{}
		}
	}
	return v
}

type submission struct {
	Details Details          `json:"payment"`
	Billing shipping.Address `json:"billing_address"`
}

// Validate implements Validator.
func (v *MethodValidator) Validate(_ context.Context, d Details, billing shipping.Address) error {
	if err := common.ValidateAs(submission{Details: d, Billing: billing}, common.ErrInvalidPayment); err != nil {
		return err
	}
	if _, ok := v.methods[strings.ToLower(strings.TrimSpace(d.Method))]; !ok {
		return common.ErrInvalidPayment.With("method", d.Method)
	}
	return nil
}
