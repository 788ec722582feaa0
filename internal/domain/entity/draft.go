package entity

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/procuro/internal/domain/money"
)

// RequestDraft carries user-entered request data. A nil field is absent.
// A nil OrderLines leaves the lines untouched on update; a non-nil (even empty) slice replaces them.
type RequestDraft struct {
	RequestorName    *string          `json:"requestor_name,omitempty"`
	Title            *string          `json:"title,omitempty"`
	VendorName       *string          `json:"vendor_name,omitempty"`
	VATID            *string          `json:"vat_id,omitempty"`
	Department       *string          `json:"department,omitempty"`
	CommodityGroupID *string          `json:"commodity_group_id,omitempty"`
	Currency         *money.Currency  `json:"currency,omitempty"`
	StatedTotalCost  *decimal.Decimal `json:"stated_total_cost,omitempty"`
	OrderLines       []OrderLine      `json:"order_lines,omitempty"`

	// ClearStatedTotalCost removes a previously stated total on update
	ClearStatedTotalCost bool `json:"clear_stated_total_cost,omitempty"`
}

// ExtractionDraft is the partial result of reading a vendor offer document.
// Every scalar is independently optional.
type ExtractionDraft struct {
	RequestorName    *string          `json:"requestor_name,omitempty"`
	Title            *string          `json:"title,omitempty"`
	VendorName       *string          `json:"vendor_name,omitempty"`
	VATID            *string          `json:"vat_id,omitempty"`
	Department       *string          `json:"department,omitempty"`
	CommodityGroupID *string          `json:"commodity_group_id,omitempty"`
	Currency         *money.Currency  `json:"currency,omitempty"`
	StatedTotalCost  *decimal.Decimal `json:"stated_total_cost,omitempty"`
	OrderLines       []OrderLine      `json:"order_lines"`
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// Draft returns the request's current values as a fully populated draft
func (r *ProcurementRequest) Draft() RequestDraft {
	currency := r.Currency
	d := RequestDraft{
		RequestorName:    StringPtr(r.RequestorName),
		Title:            StringPtr(r.Title),
		VendorName:       StringPtr(r.VendorName),
		VATID:            StringPtr(r.VATID),
		Department:       StringPtr(r.Department),
		CommodityGroupID: StringPtr(r.CommodityGroupID),
		Currency:         &currency,
		OrderLines:       cloneLines(r.OrderLines),
	}
	if d.OrderLines == nil {
		d.OrderLines = []OrderLine{}
	}
	if r.StatedTotalCost != nil {
		d.StatedTotalCost = money.Ptr(*r.StatedTotalCost)
	}
	return d
}
