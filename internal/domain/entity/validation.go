package entity

import (
	"fmt"
	"strings"

	"github.com/garyjia/procuro/pkg/utils"
)

// VATPolicy decides whether a malformed VAT ID rejects the request or only warns
type VATPolicy string

const (
	VATPolicyStrict   VATPolicy = "strict"
	VATPolicyAdvisory VATPolicy = "advisory"
)

// IsValid returns true for a known policy
func (p VATPolicy) IsValid() bool {
	return p == VATPolicyStrict || p == VATPolicyAdvisory
}

// Rules holds the configurable parts of request validation
type Rules struct {
	Units     Units
	VATPolicy VATPolicy
	// KnownCommodity reports whether a commodity group id exists. Nil accepts any non-empty id.
	KnownCommodity func(id string) bool
}

// DefaultRules uses the default unit set and strict VAT validation
func DefaultRules() Rules {
	return Rules{Units: DefaultUnits(), VATPolicy: VATPolicyStrict}
}

// Validate checks every field of the request. Advisories are findings that do not
// reject the request under the configured policy; err is a *ValidationError.
func (r Rules) Validate(req *ProcurementRequest) ([]FieldError, error) {
	var fields, advisories []FieldError
	fail := func(field, format string, args ...interface{}) {
		fields = append(fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	required := []struct {
		field string
		value string
	}{
		{"requestor_name", req.RequestorName},
		{"title", req.Title},
		{"vendor_name", req.VendorName},
		{"department", req.Department},
		{"commodity_group_id", req.CommodityGroupID},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			fail(f.field, "is required")
		}
	}

	if req.CommodityGroupID != "" && r.KnownCommodity != nil && !r.KnownCommodity(req.CommodityGroupID) {
		fail("commodity_group_id", "unknown commodity group %q", req.CommodityGroupID)
	}

	if !req.Currency.IsValid() {
		fail("currency", "unknown currency %q", req.Currency)
	}

	if !req.Status.IsValid() {
		fail("status", "unknown status %q", req.Status)
	}

	if req.VATID != "" {
		if err := utils.ValidateVATID(req.VATID); err != nil {
			finding := FieldError{Field: "vat_id", Message: err.Error()}
			if r.VATPolicy == VATPolicyAdvisory {
				advisories = append(advisories, finding)
			} else {
				fields = append(fields, finding)
			}
		}
	}

	if req.StatedTotalCost != nil && req.StatedTotalCost.IsNegative() {
		fail("stated_total_cost", "must not be negative")
	}

	for i, l := range req.OrderLines {
		prefix := fmt.Sprintf("order_lines[%d].", i)
		if strings.TrimSpace(l.Description) == "" {
			fail(prefix+"description", "is required")
		}
		if l.UnitPrice.IsNegative() {
			fail(prefix+"unit_price", "must not be negative")
		}
		if l.Quantity < 1 {
			fail(prefix+"quantity", "must be at least 1")
		}
		if !r.Units.Contains(l.Unit) {
			fail(prefix+"unit", "unknown unit %q", l.Unit)
		}
		if l.StatedTotalPrice != nil && l.StatedTotalPrice.IsNegative() {
			fail(prefix+"stated_total_price", "must not be negative")
		}
	}

	if len(fields) > 0 {
		return advisories, &ValidationError{Fields: fields}
	}
	return advisories, nil
}
