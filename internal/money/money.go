package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrCurrencyMismatch is returned when two amounts in different currencies are combined.
var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// Money is an immutable exact decimal amount tagged with a currency code.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New constructs Money from a decimal amount.
func New(amount decimal.Decimal, currency string) Money {
	return Money{amount: amount, currency: NormalizeCode(currency)}
}

// FromInt constructs Money from whole currency units.
func FromInt(units int64, currency string) Money {
	return New(decimal.NewFromInt(units), currency)
}

// Zero returns a zero amount in the provided currency.
func Zero(currency string) Money {
	return New(decimal.Zero, currency)
}

// Parse reads a decimal string such as "10.50". Floats are never involved.
func Parse(value, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", value, err)
	}
	return New(d, currency), nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(value, currency string) Money {
	m, err := Parse(value, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// NormalizeCode upper-cases and trims a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Amount returns the exact decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency code.
func (m Money) Currency() string { return m.currency }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// Add returns m + o.
func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(o.amount), currency: m.currency}, nil
}

// Sub returns m - o.
func (m Money) Sub(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(o.amount), currency: m.currency}, nil
}

// Mul multiplies the amount by an integer quantity.
func (m Money) Mul(qty int64) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(qty)), currency: m.currency}
}

// Cmp compares two amounts of the same currency.
func (m Money) Cmp(o Money) (int, error) {
	if err := m.sameCurrency(o); err != nil {
		return 0, err
	}
	return m.amount.Cmp(o.amount), nil
}

// Equal reports whether both currency and numeric value match.
func (m Money) Equal(o Money) bool {
	return m.currency == o.currency && m.amount.Equal(o.amount)
}

// Round rounds half away from zero to the given number of decimal places.
func (m Money) Round(places int32) Money {
	return Money{amount: m.amount.Round(places), currency: m.currency}
}

// StringFixed renders the amount with exactly places decimals, e.g. "5.00".
func (m Money) StringFixed(places int32) string {
	return m.amount.StringFixed(places)
}

func (m Money) String() string {
	return m.amount.String() + " " + m.currency
}

func (m Money) sameCurrency(o Money) error {
	if m.currency != o.currency {
		return fmt.Errorf("%w: %s != %s", ErrCurrencyMismatch, m.currency, o.currency)
	}
	return nil
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON encodes the amount as a string so no precision is lost.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.String(), Currency: m.currency})
}

// UnmarshalJSON decodes the representation produced by MarshalJSON.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := Parse(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
