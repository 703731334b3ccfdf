package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Config carries the display and rounding settings shared by the pricing components.
// Rounding is half away from zero (half-up for the non-negative amounts a storefront
// deals with) both when computing discounts and when formatting, so the two never
// disagree.
type Config struct {
	DecimalPlaces   int32
	DefaultCurrency string
	Symbols         map[string]string
}

// DefaultConfig returns a two-decimal configuration with a small symbol table.
func DefaultConfig() Config {
	return Config{
		DecimalPlaces:   2,
		DefaultCurrency: "USD",
		Symbols: map[string]string{
			"USD": "$",
			"EUR": "€",
			"GBP": "£",
			"IDR": "Rp",
			"JPY": "¥",
		},
	}
}

// Round rounds d to the configured number of decimal places.
func (c Config) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.DecimalPlaces)
}

// Format renders m as a fixed-point string with exactly the configured decimals.
func (c Config) Format(m Money) string {
	return m.StringFixed(c.DecimalPlaces)
}

// FormatDecimal renders d with exactly the configured decimals.
func (c Config) FormatDecimal(d decimal.Decimal) string {
	return d.StringFixed(c.DecimalPlaces)
}

// Symbol looks up the display symbol for a currency code, falling back to the code.
func (c Config) Symbol(code string) string {
	code = NormalizeCode(code)
	if sym, ok := c.Symbols[code]; ok && sym != "" {
		return sym
	}
	return code
}

// ParseSymbols reads a "USD:$,EUR:€" list into a symbol table.
func ParseSymbols(csv string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(csv, ",") {
		code, sym, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			continue
		}
		code = NormalizeCode(code)
		sym = strings.TrimSpace(sym)
		if code == "" || sym == "" {
			continue
		}
		out[code] = sym
	}
	return out
}
