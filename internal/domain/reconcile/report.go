package reconcile

import (
	"github.com/shopspring/decimal"
)

// Amounts is one stated/calculated pair to compare
type Amounts struct {
	Stated     *decimal.Decimal
	Calculated decimal.Decimal
}

// LineFinding describes one order line whose stated total disagrees with its calculation
type LineFinding struct {
	Index      int             `json:"index"`
	Stated     decimal.Decimal `json:"stated"`
	Calculated decimal.Decimal `json:"calculated"`
	Delta      decimal.Decimal `json:"delta"`
}

// Report is the outcome of reconciling a whole request
type Report struct {
	Lines               []LineFinding    `json:"lines"`
	StatedTotal         *decimal.Decimal `json:"stated_total"`
	CalculatedTotal     decimal.Decimal  `json:"calculated_total"`
	TotalDelta          *decimal.Decimal `json:"total_delta,omitempty"`
	HasTotalMismatch    bool             `json:"has_total_mismatch"`
	MismatchedLineCount int              `json:"mismatched_line_count"`
}

// Clean reports whether neither the total nor any line mismatches
func (r Report) Clean() bool {
	return !r.HasTotalMismatch && len(r.Lines) == 0
}

// Inspect compares every line and the aggregate total. Line indexes follow the input order.
func Inspect(lines []Amounts, total Amounts) Report {
	report := Report{
		Lines:           []LineFinding{},
		StatedTotal:     total.Stated,
		CalculatedTotal: total.Calculated,
	}

	for i, l := range lines {
		if !Mismatch(l.Stated, l.Calculated) {
			continue
		}
		report.Lines = append(report.Lines, LineFinding{
			Index:      i,
			Stated:     *l.Stated,
			Calculated: l.Calculated,
			Delta:      Delta(*l.Stated, l.Calculated),
		})
	}
	report.MismatchedLineCount = len(report.Lines)

	if total.Stated != nil {
		d := Delta(*total.Stated, total.Calculated)
		report.TotalDelta = &d
		report.HasTotalMismatch = Mismatch(total.Stated, total.Calculated)
	}

	return report
}
