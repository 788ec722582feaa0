// Package money holds the decimal primitives used for order-line and request totals.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fraction digits kept for every supported currency
const Scale int32 = 2

// Tolerance is the largest difference between a stated and a calculated amount
// that is still considered equal (one minor currency unit)
var Tolerance = decimal.New(1, -Scale)

// Currency is an ISO 4217 code from the supported set
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyCHF Currency = "CHF"
)

// DefaultCurrency is used when a draft does not name one
const DefaultCurrency = CurrencyEUR

var validCurrencies = map[Currency]bool{
	CurrencyEUR: true,
	CurrencyUSD: true,
	CurrencyGBP: true,
	CurrencyCHF: true,
}

// IsValid reports whether the currency is in the supported set
func (c Currency) IsValid() bool {
	return validCurrencies[c]
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}

// Currencies returns the supported currencies in a stable order
func Currencies() []Currency {
	return []Currency{CurrencyEUR, CurrencyUSD, CurrencyGBP, CurrencyCHF}
}

// ParseCurrency normalizes a code such as " eur " and checks it against the supported set
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency: %q", s)
	}
	return c, nil
}

// Round rounds an amount to the currency scale, half away from zero
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// LineTotal returns round(unitPrice × quantity)
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return Round(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// Sum adds amounts and rounds the result
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return Round(total)
}

// Format renders an amount with exactly two fraction digits
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// Ptr returns a pointer to a rounded copy of d
func Ptr(d decimal.Decimal) *decimal.Decimal {
	r := Round(d)
	return &r
}

// MustParse parses a decimal literal and panics on malformed input. Intended for constants and tests.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
