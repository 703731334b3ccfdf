package shipping

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
)

// Wildcard matches any destination country in a rate table.
const Wildcard = "*"

// RateTable quotes shipping from a static method/country table. A country
// specific rate wins over the wildcard rate for the same method.
type RateTable struct {
	rates map[string]map[string]money.Money
}

// NewRateTable constructs an empty table.
func NewRateTable() *RateTable {
	return &RateTable{rates: map[string]map[string]money.Money{}}
}

// Set registers the price for method to country. Use Wildcard for any country.
func (t *RateTable) Set(method, country string, price money.Money) {
	method = strings.ToLower(strings.TrimSpace(method))
	country = strings.ToUpper(strings.TrimSpace(country))
	if t.rates[method] == nil {
		t.rates[method] = map[string]money.Money{}
	}
	t.rates[method][country] = price
}

// Methods returns the number of configured methods.
func (t *RateTable) Methods() int {
	return len(t.rates)
}

// Quote implements Quoter.
func (t *RateTable) Quote(_ context.Context, d Details) (money.Money, error) {
	if err := common.ValidateAs(d, common.ErrInvalidShipping); err != nil {
		return money.Money{}, err
	}
	method := strings.ToLower(strings.TrimSpace(d.Method))
	byCountry, ok := t.rates[method]
	if !ok {
		return money.Money{}, common.ErrInvalidShipping.With("method", d.Method)
	}
	country := strings.ToUpper(strings.TrimSpace(d.Address.Country))
	if price, ok := byCountry[country]; ok {
		return price, nil
	}
	if price, ok := byCountry[Wildcard]; ok {
		return price, nil
	}
	return money.Money{}, common.ErrInvalidShipping.With("method", d.Method).With("country", d.Address.Country)
}

// ParseRates reads "METHOD:COUNTRY:AMOUNT[:CURRENCY]" entries separated by commas.
// Entries without a currency use defaultCurrency.
func ParseRates(csv, defaultCurrency string) (*RateTable, error) {
	table := NewRateTable()
	for _, entry := range strings.Split(csv, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("shipping rate %q: want METHOD:COUNTRY:AMOUNT[:CURRENCY]", entry)
		}
		currency := defaultCurrency
		if len(parts) == 4 {
			currency = parts[3]
		}
		price, err := money.Parse(parts[2], currency)
		if err != nil {
			return nil, fmt.Errorf("shipping rate %q: %w", entry, err)
		}
		if price.Amount().IsNegative() {
			return nil, fmt.Errorf("shipping rate %q: negative amount", entry)
		}
		table.Set(parts[0], parts[1], price)
	}
	return table, nil
}
