// Package merge folds a freshly extracted draft into a request that is being edited.
package merge

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procuro/internal/domain/entity"
	"github.com/garyjia/procuro/internal/domain/money"
)

// DescriptionSeparator joins line descriptions into classifier input
const DescriptionSeparator = ", "

// Result is the merged draft plus the classification follow-up it implies
type Result struct {
	Draft entity.RequestDraft
	// LinesReplaced is true when the extraction carried at least one order line
	LinesReplaced bool
	// OverwrittenFields lists the scalar fields taken from the extraction
	OverwrittenFields []string
	// NeedsClassification is true when the merged lines are non-empty and were replaced
	NeedsClassification bool
	ClassificationText  string
}

// Resolve applies "extraction wins when present" field by field. Order lines
// are replaced wholesale when the extraction has any, otherwise kept.
func Resolve(current entity.RequestDraft, extracted entity.ExtractionDraft) Result {
	merged := current
	var overwritten []string

	take := func(field string, dst **string, src *string) {
		if present(src) {
			v := strings.TrimSpace(*src)
			*dst = &v
			overwritten = append(overwritten, field)
		}
	}
	take("requestor_name", &merged.RequestorName, extracted.RequestorName)
	take("title", &merged.Title, extracted.Title)
	take("vendor_name", &merged.VendorName, extracted.VendorName)
	take("vat_id", &merged.VATID, extracted.VATID)
	take("department", &merged.Department, extracted.Department)
	take("commodity_group_id", &merged.CommodityGroupID, extracted.CommodityGroupID)

	if extracted.Currency != nil && strings.TrimSpace(string(*extracted.Currency)) != "" {
		c := *extracted.Currency
		merged.Currency = &c
		overwritten = append(overwritten, "currency")
	}
	if extracted.StatedTotalCost != nil {
		merged.StatedTotalCost = copyDecimal(extracted.StatedTotalCost)
		merged.ClearStatedTotalCost = false
		overwritten = append(overwritten, "stated_total_cost")
	}

	res := Result{OverwrittenFields: overwritten}

	if len(extracted.OrderLines) > 0 {
		merged.OrderLines = copyLines(extracted.OrderLines)
		res.LinesReplaced = true
		res.ClassificationText = ClassificationText(merged.OrderLines)
		res.NeedsClassification = res.ClassificationText != ""
	} else {
		merged.OrderLines = copyLines(current.OrderLines)
	}

	res.Draft = merged
	return res
}

// ClassificationText joins the non-blank line descriptions in order
func ClassificationText(lines []entity.OrderLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if d := strings.TrimSpace(l.Description); d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, DescriptionSeparator)
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	return money.Ptr(*d)
}

func copyLines(lines []entity.OrderLine) []entity.OrderLine {
	if lines == nil {
		return nil
	}
	out := make([]entity.OrderLine, len(lines))
	for i, l := range lines {
		out[i] = l
		out[i].StatedTotalPrice = copyDecimal(l.StatedTotalPrice)
	}
	return out
}
