package entity

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procuro/internal/domain/money"
	"github.com/garyjia/procuro/internal/domain/reconcile"
	"github.com/garyjia/procuro/internal/domain/workflow"
	"github.com/garyjia/procuro/pkg/utils"
)

// ProcurementRequest is the aggregate root: the request, its ordered order lines
// and its append-only status history.
type ProcurementRequest struct {
	ID               int64            `json:"id"`
	RequestorName    string           `json:"requestor_name"`
	Title            string           `json:"title"`
	VendorName       string           `json:"vendor_name"`
	VATID            string           `json:"vat_id,omitempty"`
	Department       string           `json:"department"`
	CommodityGroupID string           `json:"commodity_group_id"`
	Currency         money.Currency   `json:"currency"`
	StatedTotalCost  *decimal.Decimal `json:"stated_total_cost,omitempty"`
	Status           workflow.Status  `json:"status"`
	OrderLines       []OrderLine      `json:"order_lines"`
	StatusHistory    []StatusHistory  `json:"status_history"`
	PDFFilename      *string          `json:"pdf_filename,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewProcurementRequest creates an Open request from a draft with its creation history entry.
// The request is not validated here.
func NewProcurementRequest(d RequestDraft, at time.Time) *ProcurementRequest {
	r := &ProcurementRequest{
		Currency:   money.DefaultCurrency,
		Status:     workflow.InitialStatus,
		OrderLines: []OrderLine{},
		StatusHistory: []StatusHistory{{
			FromStatus: workflow.StatusNone,
			ToStatus:   workflow.InitialStatus,
			ChangedAt:  at,
			ChangedBy:  workflow.SystemActor,
		}},
		CreatedAt: at,
	}
	r.ApplyDraft(d, at)
	return r
}

// ApplyDraft writes every present draft field onto the request and refreshes UpdatedAt.
// Amounts are stored rounded to the currency scale.
func (r *ProcurementRequest) ApplyDraft(d RequestDraft, at time.Time) {
	setString(&r.RequestorName, d.RequestorName)
	setString(&r.Title, d.Title)
	setString(&r.VendorName, d.VendorName)
	if d.VATID != nil {
		r.VATID = utils.NormalizeVATID(*d.VATID)
	}
	setString(&r.Department, d.Department)
	setString(&r.CommodityGroupID, d.CommodityGroupID)

	if d.Currency != nil {
		r.Currency = money.Currency(strings.ToUpper(strings.TrimSpace(string(*d.Currency))))
	}
	if d.ClearStatedTotalCost {
		r.StatedTotalCost = nil
	}
	if d.StatedTotalCost != nil {
		r.StatedTotalCost = money.Ptr(*d.StatedTotalCost)
	}
	if d.OrderLines != nil {
		r.OrderLines = cloneLines(d.OrderLines)
		for i := range r.OrderLines {
			l := &r.OrderLines[i]
			l.Description = strings.TrimSpace(l.Description)
			l.UnitPrice = money.Round(l.UnitPrice)
			if l.StatedTotalPrice != nil {
				l.StatedTotalPrice = money.Ptr(*l.StatedTotalPrice)
			}
		}
	}

	r.UpdatedAt = at
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// CalculatedTotalCost sums the calculated totals of all order lines
func (r *ProcurementRequest) CalculatedTotalCost() decimal.Decimal {
	totals := make([]decimal.Decimal, len(r.OrderLines))
	for i, l := range r.OrderLines {
		totals[i] = l.CalculatedTotalPrice()
	}
	return money.Sum(totals...)
}

// HasTotalMismatch reports whether the stated total cost disagrees with the calculated one
func (r *ProcurementRequest) HasTotalMismatch() bool {
	return reconcile.Mismatch(r.StatedTotalCost, r.CalculatedTotalCost())
}

// Reconciliation checks every order line and the aggregate total
func (r *ProcurementRequest) Reconciliation() reconcile.Report {
	lines := make([]reconcile.Amounts, len(r.OrderLines))
	for i, l := range r.OrderLines {
		lines[i] = l.amounts()
	}
	return reconcile.Inspect(lines, reconcile.Amounts{
		Stated:     r.StatedTotalCost,
		Calculated: r.CalculatedTotalCost(),
	})
}

// LastStatusChange returns the timestamp of the newest history entry
func (r *ProcurementRequest) LastStatusChange() time.Time {
	if n := len(r.StatusHistory); n > 0 {
		return r.StatusHistory[n-1].ChangedAt
	}
	return r.CreatedAt
}

// ChangeStatus moves the request to a new status through the engine. On a real
// transition the status, the new history entry and UpdatedAt are set together;
// a same-status change leaves the request untouched.
func (r *ProcurementRequest) ChangeStatus(ctx context.Context, engine *workflow.Engine, to workflow.Status, actor string, at time.Time) (workflow.Transition, error) {
	tr, err := engine.Decide(ctx, r.Status, to, actor, at, r.LastStatusChange())
	if err != nil {
		return tr, err
	}
	if !tr.Changed {
		return tr, nil
	}

	r.StatusHistory = append(r.StatusHistory, StatusHistory{
		FromStatus: tr.From,
		ToStatus:   tr.To,
		ChangedAt:  tr.ChangedAt,
		ChangedBy:  tr.ChangedBy,
	})
	r.Status = tr.To
	r.UpdatedAt = tr.ChangedAt

	return tr, nil
}

// Clone returns a deep copy
func (r *ProcurementRequest) Clone() *ProcurementRequest {
	c := *r
	if r.StatedTotalCost != nil {
		stated := *r.StatedTotalCost
		c.StatedTotalCost = &stated
	}
	if r.PDFFilename != nil {
		name := *r.PDFFilename
		c.PDFFilename = &name
	}
	c.OrderLines = cloneLines(r.OrderLines)
	if c.OrderLines == nil {
		c.OrderLines = []OrderLine{}
	}
	c.StatusHistory = append([]StatusHistory{}, r.StatusHistory...)
	return &c
}
