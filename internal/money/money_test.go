package money_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/money"
)

func TestArithmeticRequiresSameCurrency(t *testing.T) {
	usd := money.MustParse("10.00", "usd")
	eur := money.MustParse("1.00", "EUR")

	sum, err := usd.Add(money.MustParse("2.50", "USD"))
	require.NoError(t, err)
	require.Equal(t, "12.50", sum.StringFixed(2))
	require.Equal(t, "USD", sum.Currency())

	_, err = usd.Add(eur)
	require.True(t, errors.Is(err, money.ErrCurrencyMismatch))
	_, err = usd.Sub(eur)
	require.True(t, errors.Is(err, money.ErrCurrencyMismatch))
	_, err = usd.Cmp(eur)
	require.True(t, errors.Is(err, money.ErrCurrencyMismatch))
}

func TestFormatAlwaysHasConfiguredPlaces(t *testing.T) {
	cfg := money.DefaultConfig()
	require.Equal(t, "5.00", cfg.Format(money.FromInt(5, "USD")))
	require.Equal(t, "0.00", cfg.Format(money.Zero("USD")))
	require.Equal(t, "0.01", cfg.Format(money.MustParse("0.005", "USD")))
	require.Equal(t, "2.68", cfg.Format(money.MustParse("2.675", "USD")))

	cfg.DecimalPlaces = 0
	require.Equal(t, "3", cfg.Format(money.MustParse("2.5", "JPY")))
}

func TestRoundIsHalfUp(t *testing.T) {
	cases := map[string]string{
		"1.005":  "1.01",
		"1.004":  "1.00",
		"0.125":  "0.13",
		"0.135":  "0.14",
		"19.999": "20.00",
	}
	for in, want := range cases {
		got := money.MustParse(in, "USD").Round(2)
		require.True(t, got.Amount().Equal(decimal.RequireFromString(want)), "%s rounded to %s", in, got.Amount())
	}
}

func TestMulKeepsExactness(t *testing.T) {
	m := money.MustParse("0.10", "USD").Mul(3)
	require.True(t, m.Amount().Equal(decimal.RequireFromString("0.3")))
}

func TestJSONRoundTripPreservesPrecision(t *testing.T) {
	m := money.MustParse("1234.5678", "IDR")
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	require.JSONEq(t, `{"amount":"1234.5678","currency":"IDR"}`, string(raw))

	var back money.Money
	require.NoError(t, json.Unmarshal(raw, &back))
	require.True(t, back.Equal(m))
}

func TestSymbolLookup(t *testing.T) {
	cfg := money.DefaultConfig()
	require.Equal(t, "$", cfg.Symbol("usd"))
	require.Equal(t, "CHF", cfg.Symbol("CHF"))

	cfg.Symbols = money.ParseSymbols("chf:Fr, bad, EUR:€")
	require.Equal(t, "Fr", cfg.Symbol("CHF"))
	require.Equal(t, "€", cfg.Symbol("EUR"))
}
