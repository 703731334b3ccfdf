package order

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// ErrDuplicateCode is returned when an order code is already taken.
var ErrDuplicateCode = errors.New("order: duplicate code")

// Status is the lifecycle state of a purchase order.
type Status string

const (
	// StatusPending is set when the order and its lines are first persisted.
	StatusPending Status = "pending"
	// StatusProcessing is set once the details job attached shipping, payment,
	// tax and promotion records.
	StatusProcessing Status = "processing"
	// StatusError marks a failed details job and awaits reconciliation.
	StatusError Status = "error"
)

// Profile identifies the customer placing the order. Profiles are matched on all
// four fields with the email compared case-insensitively.
type Profile struct {
	ID        int64  `json:"-"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
}

// Line is a persisted order line. PricePerUnit is frozen when the order is
// created and never recomputed.
type Line struct {
	ID           int64
	ItemID       int64
	SKU          string
	Name         string
	Quantity     int
	PricePerUnit money.Money
}

// ShippingRecord is the shipping selection attached by the details job.
type ShippingRecord struct {
	Method  string
	Amount  money.Money
	Address shipping.Address
}

// PaymentRecord is the payment selection attached by the details job.
type PaymentRecord struct {
	Method  string
	Billing shipping.Address
}

// PurchaseOrder is the persisted order aggregate. Totals are not stored; they are
// computed on read from the lines and the linked promotion, tax and shipping.
type PurchaseOrder struct {
	ID                 int64
	Code               string
	Profile            Profile
	Status             Status
	StatusReason       string
	Currency           string
	PromotionID        *int64
	TaxID              *int64
	Shipping           *ShippingRecord
	Payment            *PaymentRecord
	DetailsURL         string
	PromotionSettledAt *time.Time
	Lines              []Line
	CreatedAt          time.Time
}

// NewOrder is the input to Persist.
type NewOrder struct {
	Code     string
	Profile  Profile
	Currency string
	Lines    []Line
}

// Details are the sub-records attached asynchronously after persistence.
type Details struct {
	Shipping    ShippingRecord
	Payment     PaymentRecord
	PromotionID *int64
	TaxID       *int64
	DetailsURL  string
}

// NewCode generates a unique, human-friendly order code.
func NewCode() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "PO-" + id[:16]
}
