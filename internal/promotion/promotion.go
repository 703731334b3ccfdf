package promotion

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInactive is returned when the promotion has been switched off.
	ErrInactive = errors.New("promotion not active")
	// ErrNotStarted is returned before the activity window opens.
	ErrNotStarted = errors.New("promotion not started")
	// ErrExpired is returned once the activity window has closed.
	ErrExpired = errors.New("promotion expired")
	// ErrUsageLimitReached indicates the promotion has exhausted its usage cap.
	ErrUsageLimitReached = errors.New("promotion usage limit reached")
)

// Kind distinguishes automatically applied deals from code-gated coupons.
type Kind string

const (
	KindDeal   Kind = "deal"
	KindCoupon Kind = "coupon"
)

// Promotion is a percentage discount attached to explicitly linked catalog items.
type Promotion struct {
	ID                 int64
	Code               string
	Title              string
	Summary            string
	Kind               Kind
	DiscountPercentage decimal.Decimal
	StartsAt           time.Time
	EndsAt             time.Time
	UsageCap           *int32
	UsedCount          int32
	IsActive           bool
	IsUnlimitedUse     bool
}

// Validate reports why the promotion cannot be applied at now, or nil. The
// activity window is half-open: StartsAt is inside it, EndsAt is not. A missing
// usage cap means the promotion is not capped.
func (p Promotion) Validate(now time.Time) error {
	if !p.IsActive {
		return ErrInactive
	}
	if now.Before(p.StartsAt) {
		return ErrNotStarted
	}
	if !now.Before(p.EndsAt) {
		return ErrExpired
	}
	if !p.IsUnlimitedUse && p.UsageCap != nil && p.UsedCount >= *p.UsageCap {
		return ErrUsageLimitReached
	}
	return nil
}

// Effective reports whether Validate passes.
func (p Promotion) Effective(now time.Time) bool {
	return p.Validate(now) == nil
}

// DiscountLabel renders the percentage as "<pct>%", e.g. "10%" or "12.5%".
func (p Promotion) DiscountLabel() string {
	return p.DiscountPercentage.String() + "%"
}
