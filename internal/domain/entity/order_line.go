package entity

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procuro/internal/domain/money"
	"github.com/garyjia/procuro/internal/domain/reconcile"
)

// Unit is the unit of measure of an order line
type Unit string

// Default units of measure
const (
	UnitPieces   Unit = "pcs"
	UnitKilogram Unit = "kg"
	UnitMeter    Unit = "m"
	UnitLiter    Unit = "l"
	UnitHour     Unit = "h"
	UnitSet      Unit = "set"
)

// OrderLine is one purchasable item of a procurement request
type OrderLine struct {
	Description      string           `json:"description"`
	UnitPrice        decimal.Decimal  `json:"unit_price"`
	Quantity         int              `json:"quantity"`
	Unit             Unit             `json:"unit"`
	StatedTotalPrice *decimal.Decimal `json:"stated_total_price,omitempty"`
}

// CalculatedTotalPrice returns unit price times quantity rounded to the currency scale
func (l OrderLine) CalculatedTotalPrice() decimal.Decimal {
	return money.LineTotal(l.UnitPrice, l.Quantity)
}

// HasPriceMismatch reports whether the stated total disagrees with the calculated one
func (l OrderLine) HasPriceMismatch() bool {
	return reconcile.Mismatch(l.StatedTotalPrice, l.CalculatedTotalPrice())
}

func (l OrderLine) amounts() reconcile.Amounts {
	return reconcile.Amounts{Stated: l.StatedTotalPrice, Calculated: l.CalculatedTotalPrice()}
}

func (l OrderLine) clone() OrderLine {
	c := l
	if l.StatedTotalPrice != nil {
		stated := *l.StatedTotalPrice
		c.StatedTotalPrice = &stated
	}
	return c
}

func cloneLines(lines []OrderLine) []OrderLine {
	if lines == nil {
		return nil
	}
	out := make([]OrderLine, len(lines))
	for i, l := range lines {
		out[i] = l.clone()
	}
	return out
}

// unitSynonyms maps spellings found in vendor offers to the default units
var unitSynonyms = map[string]Unit{
	"pc": UnitPieces, "piece": UnitPieces, "pieces": UnitPieces, "stk": UnitPieces,
	"st": UnitPieces, "stück": UnitPieces, "stueck": UnitPieces, "ea": UnitPieces,
	"each": UnitPieces, "unit": UnitPieces, "units": UnitPieces, "x": UnitPieces,
	"kilo": UnitKilogram, "kilogram": UnitKilogram, "kilograms": UnitKilogram, "kgs": UnitKilogram,
	"meter": UnitMeter, "meters": UnitMeter, "metre": UnitMeter, "metres": UnitMeter, "lfm": UnitMeter,
	"liter": UnitLiter, "liters": UnitLiter, "litre": UnitLiter, "litres": UnitLiter, "ltr": UnitLiter,
	"hour": UnitHour, "hours": UnitHour, "hr": UnitHour, "hrs": UnitHour, "std": UnitHour, "stunden": UnitHour,
	"sets": UnitSet, "kit": UnitSet, "package": UnitSet, "pkg": UnitSet,
}

// Units is the configured set of allowed units of measure
type Units struct {
	order   []Unit
	allowed map[Unit]bool
}

// DefaultUnits returns pcs, kg, m, l, h and set
func DefaultUnits() Units {
	return NewUnits(string(UnitPieces), string(UnitKilogram), string(UnitMeter),
		string(UnitLiter), string(UnitHour), string(UnitSet))
}

// NewUnits builds a unit set from configuration. Blank and duplicate names are skipped.
func NewUnits(names ...string) Units {
	u := Units{allowed: make(map[Unit]bool)}
	for _, n := range names {
		unit := Unit(strings.ToLower(strings.TrimSpace(n)))
		if unit == "" || u.allowed[unit] {
			continue
		}
		u.allowed[unit] = true
		u.order = append(u.order, unit)
	}
	return u
}

// Contains reports whether the unit is allowed
func (u Units) Contains(unit Unit) bool {
	return u.allowed[unit]
}

// List returns the allowed units in configuration order
func (u Units) List() []Unit {
	return append([]Unit{}, u.order...)
}

// Fallback returns the unit used when a raw value cannot be mapped
func (u Units) Fallback() Unit {
	if u.allowed[UnitPieces] || len(u.order) == 0 {
		return UnitPieces
	}
	return u.order[0]
}

// Normalize maps a free-text unit onto the allowed set
func (u Units) Normalize(raw string) Unit {
	key := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), ".")))
	if u.allowed[Unit(key)] {
		return Unit(key)
	}
	if unit, ok := unitSynonyms[key]; ok && u.allowed[unit] {
		return unit
	}
	return u.Fallback()
}
