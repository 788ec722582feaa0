package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procuro/internal/application/service"
	"github.com/garyjia/procuro/internal/domain/entity"
	"github.com/garyjia/procuro/internal/domain/money"
	"github.com/garyjia/procuro/internal/domain/reconcile"
	"github.com/garyjia/procuro/internal/domain/workflow"
)

// Response represents a standard JSON response
type Response struct {
	Success bool                `json:"success"`
	Data    interface{}         `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
	Fields  []entity.FieldError `json:"fields,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// OrderLineView is an order line with its derived amounts
type OrderLineView struct {
	Position             int     `json:"position"`
	Description          string  `json:"description"`
	UnitPrice            string  `json:"unit_price"`
	Quantity             int     `json:"quantity"`
	Unit                 string  `json:"unit"`
	StatedTotalPrice     *string `json:"stated_total_price"`
	CalculatedTotalPrice string  `json:"calculated_total_price"`
	HasPriceMismatch     bool    `json:"has_price_mismatch"`
}

// HistoryView is one status history entry
type HistoryView struct {
	ID         int64     `json:"id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ChangedAt  time.Time `json:"changed_at"`
	ChangedBy  string    `json:"changed_by"`
}

// RequestView is a procurement request with its derived totals and flags
type RequestView struct {
	ID                  int64           `json:"id"`
	RequestorName       string          `json:"requestor_name"`
	Title               string          `json:"title"`
	VendorName          string          `json:"vendor_name"`
	VATID               string          `json:"vat_id"`
	Department          string          `json:"department"`
	CommodityGroupID    string          `json:"commodity_group_id"`
	Currency            string          `json:"currency"`
	StatedTotalCost     *string         `json:"stated_total_cost"`
	CalculatedTotalCost string          `json:"calculated_total_cost"`
	HasTotalMismatch    bool            `json:"has_total_mismatch"`
	Status              string          `json:"status"`
	OrderLines          []OrderLineView `json:"order_lines"`
	StatusHistory       []HistoryView   `json:"status_history"`
	HasDocument         bool            `json:"has_document"`
	NextStatuses        []string        `json:"next_statuses"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ResultView is a saved request plus the warnings raised while saving it
type ResultView struct {
	Request  RequestView       `json:"request"`
	Warnings []service.Warning `json:"warnings"`
}

// LineFindingView is one mismatching order line
type LineFindingView struct {
	Position   int    `json:"position"`
	Stated     string `json:"stated"`
	Calculated string `json:"calculated"`
	Delta      string `json:"delta"`
}

// ReconciliationView is the reconciliation report of one request
type ReconciliationView struct {
	RequestID           int64             `json:"request_id"`
	Lines               []LineFindingView `json:"lines"`
	StatedTotal         *string           `json:"stated_total"`
	CalculatedTotal     string            `json:"calculated_total"`
	TotalDelta          *string           `json:"total_delta"`
	HasTotalMismatch    bool              `json:"has_total_mismatch"`
	MismatchedLineCount int               `json:"mismatched_line_count"`
	Clean               bool              `json:"clean"`
}

func toRequestView(r *entity.ProcurementRequest, next []workflow.Status) RequestView {
	v := RequestView{
		ID:                  r.ID,
		RequestorName:       r.RequestorName,
		Title:               r.Title,
		VendorName:          r.VendorName,
		VATID:               r.VATID,
		Department:          r.Department,
		CommodityGroupID:    r.CommodityGroupID,
		Currency:            r.Currency.String(),
		StatedTotalCost:     formatOptional(r.StatedTotalCost),
		CalculatedTotalCost: money.Format(r.CalculatedTotalCost()),
		HasTotalMismatch:    r.HasTotalMismatch(),
		Status:              r.Status.String(),
		OrderLines:          make([]OrderLineView, len(r.OrderLines)),
		StatusHistory:       make([]HistoryView, len(r.StatusHistory)),
		HasDocument:         r.PDFFilename != nil,
		NextStatuses:        make([]string, len(next)),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}

	for i, l := range r.OrderLines {
		v.OrderLines[i] = OrderLineView{
			Position:             i + 1,
			Description:          l.Description,
			UnitPrice:            money.Format(l.UnitPrice),
			Quantity:             l.Quantity,
			Unit:                 string(l.Unit),
			StatedTotalPrice:     formatOptional(l.StatedTotalPrice),
			CalculatedTotalPrice: money.Format(l.CalculatedTotalPrice()),
			HasPriceMismatch:     l.HasPriceMismatch(),
		}
	}
	for i, st := range next {
		v.NextStatuses[i] = st.String()
	}
	for i, h := range r.StatusHistory {
		v.StatusHistory[i] = HistoryView{
			ID:         h.ID,
			FromStatus: h.FromStatus.String(),
			ToStatus:   h.ToStatus.String(),
			ChangedAt:  h.ChangedAt,
			ChangedBy:  h.ChangedBy,
		}
	}
	return v
}

func toResultView(res *service.Result, next []workflow.Status) ResultView {
	warnings := res.Warnings
	if warnings == nil {
		warnings = []service.Warning{}
	}
	return ResultView{Request: toRequestView(res.Request, next), Warnings: warnings}
}

func toReconciliationView(id int64, report *reconcile.Report) ReconciliationView {
	v := ReconciliationView{
		RequestID:           id,
		Lines:               make([]LineFindingView, len(report.Lines)),
		StatedTotal:         formatOptional(report.StatedTotal),
		CalculatedTotal:     money.Format(report.CalculatedTotal),
		TotalDelta:          formatOptional(report.TotalDelta),
		HasTotalMismatch:    report.HasTotalMismatch,
		MismatchedLineCount: report.MismatchedLineCount,
		Clean:               report.Clean(),
	}
	for i, l := range report.Lines {
		v.Lines[i] = LineFindingView{
			Position:   l.Index + 1,
			Stated:     money.Format(l.Stated),
			Calculated: money.Format(l.Calculated),
			Delta:      money.Format(l.Delta),
		}
	}
	return v
}

func formatOptional(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := money.Format(*d)
	return &s
}
