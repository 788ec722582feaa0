package dynamodb

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procuro/internal/domain/entity"
	"github.com/garyjia/procuro/internal/domain/money"
	"github.com/garyjia/procuro/internal/domain/workflow"
)

const (
	attrPK      = "pk"
	attrVersion = "version"

	requestKeyPrefix = "REQUEST#"
	counterKey       = "COUNTER#requests"
	itemTypeRequest  = "request"
)

type orderLineItem struct {
	Description      string `dynamodbav:"description"`
	UnitPrice        string `dynamodbav:"unit_price"`
	Quantity         int    `dynamodbav:"quantity"`
	Unit             string `dynamodbav:"unit"`
	StatedTotalPrice string `dynamodbav:"stated_total_price,omitempty"`
}

type historyItem struct {
	ID         int64  `dynamodbav:"id"`
	FromStatus string `dynamodbav:"from_status"`
	ToStatus   string `dynamodbav:"to_status"`
	ChangedAt  string `dynamodbav:"changed_at"`
	ChangedBy  string `dynamodbav:"changed_by"`
}

// requestItem is the stored form of one aggregate. Decimals and times are strings
// so that they round-trip exactly.
type requestItem struct {
	PK               string          `dynamodbav:"pk"`
	Type             string          `dynamodbav:"type"`
	Version          int64           `dynamodbav:"version"`
	ID               int64           `dynamodbav:"id"`
	RequestorName    string          `dynamodbav:"requestor_name"`
	Title            string          `dynamodbav:"title"`
	VendorName       string          `dynamodbav:"vendor_name"`
	VATID            string          `dynamodbav:"vat_id"`
	Department       string          `dynamodbav:"department"`
	CommodityGroupID string          `dynamodbav:"commodity_group_id"`
	Currency         string          `dynamodbav:"currency"`
	StatedTotalCost  string          `dynamodbav:"stated_total_cost,omitempty"`
	Status           string          `dynamodbav:"status"`
	PDFFilename      string          `dynamodbav:"pdf_filename,omitempty"`
	OrderLines       []orderLineItem `dynamodbav:"order_lines"`
	StatusHistory    []historyItem   `dynamodbav:"status_history"`
	CreatedAt        string          `dynamodbav:"created_at"`
	UpdatedAt        string          `dynamodbav:"updated_at"`
}

func requestKey(id int64) string {
	return requestKeyPrefix + strconv.FormatInt(id, 10)
}

func toRequestItem(r *entity.ProcurementRequest, version int64) requestItem {
	it := requestItem{
		PK:               requestKey(r.ID),
		Type:             itemTypeRequest,
		Version:          version,
		ID:               r.ID,
		RequestorName:    r.RequestorName,
		Title:            r.Title,
		VendorName:       r.VendorName,
		VATID:            r.VATID,
		Department:       r.Department,
		CommodityGroupID: r.CommodityGroupID,
		Currency:         string(r.Currency),
		StatedTotalCost:  decimalString(r.StatedTotalCost),
		Status:           string(r.Status),
		OrderLines:       make([]orderLineItem, len(r.OrderLines)),
		StatusHistory:    make([]historyItem, len(r.StatusHistory)),
		CreatedAt:        formatTime(r.CreatedAt),
		UpdatedAt:        formatTime(r.UpdatedAt),
	}
	if r.PDFFilename != nil {
		it.PDFFilename = *r.PDFFilename
	}
	for i, l := range r.OrderLines {
		it.OrderLines[i] = orderLineItem{
			Description:      l.Description,
			UnitPrice:        l.UnitPrice.String(),
			Quantity:         l.Quantity,
			Unit:             string(l.Unit),
			StatedTotalPrice: decimalString(l.StatedTotalPrice),
		}
	}
	for i, h := range r.StatusHistory {
		it.StatusHistory[i] = historyItem{
			ID:         h.ID,
			FromStatus: string(h.FromStatus),
			ToStatus:   string(h.ToStatus),
			ChangedAt:  formatTime(h.ChangedAt),
			ChangedBy:  h.ChangedBy,
		}
	}
	return it
}

func fromRequestItem(it requestItem) (*entity.ProcurementRequest, error) {
	r := &entity.ProcurementRequest{
		ID:               it.ID,
		RequestorName:    it.RequestorName,
		Title:            it.Title,
		VendorName:       it.VendorName,
		VATID:            it.VATID,
		Department:       it.Department,
		CommodityGroupID: it.CommodityGroupID,
		Currency:         money.Currency(it.Currency),
		Status:           workflow.Status(it.Status),
		OrderLines:       make([]entity.OrderLine, len(it.OrderLines)),
		StatusHistory:    make([]entity.StatusHistory, len(it.StatusHistory)),
	}

	var err error
	if r.StatedTotalCost, err = parseDecimal(it.StatedTotalCost); err != nil {
		return nil, fmt.Errorf("stated_total_cost: %w", err)
	}
	if it.PDFFilename != "" {
		name := it.PDFFilename
		r.PDFFilename = &name
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, it.CreatedAt); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, it.UpdatedAt); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}

	for i, l := range it.OrderLines {
		unitPrice, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("order_lines[%d].unit_price: %w", i, err)
		}
		stated, err := parseDecimal(l.StatedTotalPrice)
		if err != nil {
			return nil, fmt.Errorf("order_lines[%d].stated_total_price: %w", i, err)
		}
		r.OrderLines[i] = entity.OrderLine{
			Description:      l.Description,
			UnitPrice:        unitPrice,
			Quantity:         l.Quantity,
			Unit:             entity.Unit(l.Unit),
			StatedTotalPrice: stated,
		}
	}
	for i, h := range it.StatusHistory {
		changedAt, err := time.Parse(time.RFC3339Nano, h.ChangedAt)
		if err != nil {
			return nil, fmt.Errorf("status_history[%d].changed_at: %w", i, err)
		}
		r.StatusHistory[i] = entity.StatusHistory{
			ID:         h.ID,
			FromStatus: workflow.Status(h.FromStatus),
			ToStatus:   workflow.Status(h.ToStatus),
			ChangedAt:  changedAt,
			ChangedBy:  h.ChangedBy,
		}
	}
	return r, nil
}

func matchesSearch(it requestItem, search string) bool {
	for _, field := range []string{it.Title, it.VendorName, it.RequestorName} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func decimalString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func parseDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
