// Package export renders the request overview as a spreadsheet.
package export

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/domain/entity"
)

const (
	requestsSheet = "Requests"
	linesSheet    = "Order Lines"
	timeLayout    = "2006-01-02 15:04"
)

var (
	requestHeaders = []interface{}{
		"ID", "Title", "Requestor", "Department", "Vendor", "VAT ID", "Commodity Group",
		"Currency", "Stated Total", "Calculated Total", "Total Mismatch", "Status",
		"Order Lines", "Created", "Updated",
	}
	lineHeaders = []interface{}{
		"Request ID", "Line", "Description", "Unit Price", "Quantity", "Unit",
		"Stated Line Total", "Calculated Line Total", "Price Mismatch",
	}
)

// XLSXExporter implements port.Exporter with excelize
type XLSXExporter struct {
	describeCommodity func(id string) string
	logger            *zap.Logger
}

// NewXLSXExporter creates an exporter. describeCommodity renders a commodity group id
// for display and may be nil.
func NewXLSXExporter(describeCommodity func(id string) string, logger *zap.Logger) *XLSXExporter {
	return &XLSXExporter{
		describeCommodity: describeCommodity,
		logger:            logger,
	}
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *XLSXExporter) FileExtension() string {
	return ".xlsx"
}

// Export writes one overview row per request and one row per order line
func (e *XLSXExporter) Export(ctx context.Context, requests []*entity.ProcurementRequest) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", requestsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(linesSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	if err := e.writeRow(f, requestsSheet, 1, requestHeaders); err != nil {
		return nil, err
	}
	if err := e.writeRow(f, linesSheet, 1, lineHeaders); err != nil {
		return nil, err
	}

	lineRow := 2
	for i, r := range requests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row := []interface{}{
			r.ID,
			r.Title,
			r.RequestorName,
			r.Department,
			r.VendorName,
			r.VATID,
			e.commodity(r.CommodityGroupID),
			string(r.Currency),
			optionalAmount(r.StatedTotalCost),
			r.CalculatedTotalCost().InexactFloat64(),
			yesNo(r.HasTotalMismatch()),
			string(r.Status),
			len(r.OrderLines),
			r.CreatedAt.UTC().Format(timeLayout),
			r.UpdatedAt.UTC().Format(timeLayout),
		}
		if err := e.writeRow(f, requestsSheet, i+2, row); err != nil {
			return nil, err
		}

		for j, l := range r.OrderLines {
			line := []interface{}{
				r.ID,
				j + 1,
				l.Description,
				l.UnitPrice.InexactFloat64(),
				l.Quantity,
				string(l.Unit),
				optionalAmount(l.StatedTotalPrice),
				l.CalculatedTotalPrice().InexactFloat64(),
				yesNo(l.HasPriceMismatch()),
			}
			if err := e.writeRow(f, linesSheet, lineRow, line); err != nil {
				return nil, err
			}
			lineRow++
		}
	}

	type styledRange struct {
		sheet, from, to string
		style           int
	}
	styles := []styledRange{
		{requestsSheet, "A1", "O1", headerStyle},
		{linesSheet, "A1", "I1", headerStyle},
	}
	if len(requests) > 0 {
		styles = append(styles, styledRange{requestsSheet, "I2", fmt.Sprintf("J%d", len(requests)+1), moneyStyle})
	}
	if lineRow > 2 {
		styles = append(styles,
			styledRange{linesSheet, "D2", fmt.Sprintf("D%d", lineRow-1), moneyStyle},
			styledRange{linesSheet, "G2", fmt.Sprintf("H%d", lineRow-1), moneyStyle})
	}
	for _, s := range styles {
		if err := f.SetCellStyle(s.sheet, s.from, s.to, s.style); err != nil {
			return nil, fmt.Errorf("failed to set style: %w", err)
		}
	}
	_ = f.SetColWidth(requestsSheet, "B", "G", 24)
	_ = f.SetColWidth(linesSheet, "C", "C", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Debug("Workbook exported",
		zap.Int("requests", len(requests)),
		zap.Int("order_lines", lineRow-2))
	return buf.Bytes(), nil
}

func (e *XLSXExporter) writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func (e *XLSXExporter) commodity(id string) string {
	if e.describeCommodity == nil {
		return id
	}
	return fmt.Sprintf("%s (%s)", id, e.describeCommodity(id))
}

func optionalAmount(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.InexactFloat64()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

var _ port.Exporter = (*XLSXExporter)(nil)
