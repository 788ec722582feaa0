// Package reconcile compares stated totals from offer documents with totals
// calculated from unit prices and quantities.
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/procuro/internal/domain/money"
)

// Mismatch reports whether a stated amount contradicts a calculated one.
// An absent stated amount never mismatches; a difference of exactly one
// tolerance unit is still a match.
func Mismatch(stated *decimal.Decimal, calculated decimal.Decimal) bool {
	if stated == nil {
		return false
	}
	return Delta(*stated, calculated).Abs().GreaterThan(money.Tolerance)
}

// Delta returns calculated − stated, both rounded to the currency scale
func Delta(stated, calculated decimal.Decimal) decimal.Decimal {
	return money.Round(calculated).Sub(money.Round(stated))
}
