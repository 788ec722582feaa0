package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/domain/entity"
	"github.com/garyjia/procuro/internal/domain/money"
	"github.com/garyjia/procuro/internal/domain/workflow"
	"github.com/garyjia/procuro/internal/infrastructure/persistence/sqlite"
)

// RequestRepository implements port.RequestRepository on SQLite
type RequestRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sqlite.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const selectRequestColumns = `
	SELECT id, requestor_name, title, vendor_name, vat_id, department,
		commodity_group_id, currency, stated_total_cost, status, pdf_filename,
		created_at, updated_at
	FROM procurement_requests
`

// Create inserts the request, its order lines and its history in one transaction
func (r *RequestRepository) Create(ctx context.Context, req *entity.ProcurementRequest) error {
	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := r.db.Executor(txCtx)

		query := `
			INSERT INTO procurement_requests (
				requestor_name, title, vendor_name, vat_id, department,
				commodity_group_id, currency, stated_total_cost, status,
				pdf_filename, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		result, err := exec.ExecContext(txCtx, query,
			req.RequestorName,
			req.Title,
			req.VendorName,
			req.VATID,
			req.Department,
			req.CommodityGroupID,
			string(req.Currency),
			nullDecimal(req.StatedTotalCost),
			string(req.Status),
			nullString(req.PDFFilename),
			req.CreatedAt,
			req.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create request", zap.Error(err))
			return fmt.Errorf("failed to create request: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}

		if err := r.insertLines(txCtx, exec, id, req.OrderLines); err != nil {
			return err
		}
		if err := r.appendHistory(txCtx, exec, id, req.StatusHistory); err != nil {
			return err
		}

		req.ID = id
		return nil
	})
}

// GetByID loads a request with its lines and history
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.ProcurementRequest, error) {
	req, err := r.load(ctx, r.db.Executor(ctx), id)
	if err != nil {
		r.logger.Error("Failed to get request by ID", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return req, nil
}

// List returns matching requests ordered by creation time, newest first
func (r *RequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*entity.ProcurementRequest, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		conditions = append(conditions, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(vendor_name) LIKE ? ESCAPE '\' OR LOWER(requestor_name) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}

	query := selectRequestColumns
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	exec := r.db.Executor(ctx)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	requests := []*entity.ProcurementRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, req := range requests {
		if err := r.loadChildren(ctx, exec, req); err != nil {
			return nil, err
		}
	}

	return requests, nil
}

// Update runs fn on the stored aggregate inside one transaction and writes back
// the request row, the full order-line list and any new history entries
func (r *RequestRepository) Update(ctx context.Context, id int64, fn func(req *entity.ProcurementRequest) error) (*entity.ProcurementRequest, error) {
	var updated *entity.ProcurementRequest

	err := r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := r.db.Executor(txCtx)

		current, err := r.load(txCtx, exec, id)
		if err != nil {
			return err
		}
		if current == nil {
			return entity.ErrNotFound
		}

		working := current.Clone()
		if err := fn(working); err != nil {
			return err
		}
		working.ID = id

		if err := entity.VerifyHistoryAppend(current.StatusHistory, working.StatusHistory); err != nil {
			return err
		}

		query := `
			UPDATE procurement_requests SET
				requestor_name = ?, title = ?, vendor_name = ?, vat_id = ?,
				department = ?, commodity_group_id = ?, currency = ?,
				stated_total_cost = ?, status = ?, pdf_filename = ?, updated_at = ?
			WHERE id = ?
		`
		if _, err := exec.ExecContext(txCtx, query,
			working.RequestorName,
			working.Title,
			working.VendorName,
			working.VATID,
			working.Department,
			working.CommodityGroupID,
			string(working.Currency),
			nullDecimal(working.StatedTotalCost),
			string(working.Status),
			nullString(working.PDFFilename),
			working.UpdatedAt,
			id,
		); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}

		if _, err := exec.ExecContext(txCtx, "DELETE FROM order_lines WHERE request_id = ?", id); err != nil {
			return fmt.Errorf("failed to clear order lines: %w", err)
		}
		if err := r.insertLines(txCtx, exec, id, working.OrderLines); err != nil {
			return err
		}
		if err := r.appendHistory(txCtx, exec, id, working.StatusHistory[len(current.StatusHistory):]); err != nil {
			return err
		}

		updated = working
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes a request; lines and history follow through ON DELETE CASCADE
func (r *RequestRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.Executor(ctx).ExecContext(ctx, "DELETE FROM procurement_requests WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete request", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to delete request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *RequestRepository) load(ctx context.Context, exec sqlite.Executor, id int64) (*entity.ProcurementRequest, error) {
	req, err := scanRequest(exec.QueryRowContext(ctx, selectRequestColumns+" WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	if err := r.loadChildren(ctx, exec, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *RequestRepository) loadChildren(ctx context.Context, exec sqlite.Executor, req *entity.ProcurementRequest) error {
	lines, err := r.loadLines(ctx, exec, req.ID)
	if err != nil {
		return err
	}
	history, err := r.loadHistory(ctx, exec, req.ID)
	if err != nil {
		return err
	}
	req.OrderLines = lines
	req.StatusHistory = history
	return nil
}

func (r *RequestRepository) loadLines(ctx context.Context, exec sqlite.Executor, requestID int64) ([]entity.OrderLine, error) {
	query := `
		SELECT description, unit_price, quantity, unit, stated_total_price
		FROM order_lines
		WHERE request_id = ?
		ORDER BY position
	`
	rows, err := exec.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order lines: %w", err)
	}
	defer rows.Close()

	lines := []entity.OrderLine{}
	for rows.Next() {
		var l entity.OrderLine
		var unit string
		var stated decimal.NullDecimal
		if err := rows.Scan(&l.Description, &l.UnitPrice, &l.Quantity, &unit, &stated); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		l.Unit = entity.Unit(unit)
		if stated.Valid {
			l.StatedTotalPrice = money.Ptr(stated.Decimal)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *RequestRepository) loadHistory(ctx context.Context, exec sqlite.Executor, requestID int64) ([]entity.StatusHistory, error) {
	query := `
		SELECT id, from_status, to_status, changed_at, changed_by
		FROM status_history
		WHERE request_id = ?
		ORDER BY id
	`
	rows, err := exec.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}
	defer rows.Close()

	history := []entity.StatusHistory{}
	for rows.Next() {
		var h entity.StatusHistory
		var from, to string
		if err := rows.Scan(&h.ID, &from, &to, &h.ChangedAt, &h.ChangedBy); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		h.FromStatus = workflow.Status(from)
		h.ToStatus = workflow.Status(to)
		history = append(history, h)
	}
	return history, rows.Err()
}

func (r *RequestRepository) insertLines(ctx context.Context, exec sqlite.Executor, requestID int64, lines []entity.OrderLine) error {
	query := `
		INSERT INTO order_lines (
			request_id, position, description, unit_price, quantity, unit, stated_total_price
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for i, l := range lines {
		if _, err := exec.ExecContext(ctx, query,
			requestID,
			i,
			l.Description,
			l.UnitPrice.String(),
			l.Quantity,
			string(l.Unit),
			nullDecimal(l.StatedTotalPrice),
		); err != nil {
			return fmt.Errorf("failed to insert order line %d: %w", i, err)
		}
	}
	return nil
}

// appendHistory inserts entries and assigns their IDs in place
func (r *RequestRepository) appendHistory(ctx context.Context, exec sqlite.Executor, requestID int64, entries []entity.StatusHistory) error {
	query := `
		INSERT INTO status_history (request_id, from_status, to_status, changed_at, changed_by)
		VALUES (?, ?, ?, ?, ?)
	`
	for i := range entries {
		result, err := exec.ExecContext(ctx, query,
			requestID,
			string(entries[i].FromStatus),
			string(entries[i].ToStatus),
			entries[i].ChangedAt,
			entries[i].ChangedBy,
		)
		if err != nil {
			return fmt.Errorf("failed to insert status history: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		entries[i].ID = id
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*entity.ProcurementRequest, error) {
	var req entity.ProcurementRequest
	var currency, status string
	var stated decimal.NullDecimal
	var pdf sql.NullString

	err := row.Scan(
		&req.ID,
		&req.RequestorName,
		&req.Title,
		&req.VendorName,
		&req.VATID,
		&req.Department,
		&req.CommodityGroupID,
		&currency,
		&stated,
		&status,
		&pdf,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Currency = money.Currency(currency)
	req.Status = workflow.Status(status)
	if stated.Valid {
		req.StatedTotalCost = money.Ptr(stated.Decimal)
	}
	if pdf.Valid {
		req.PDFFilename = &pdf.String
	}
	return &req, nil
}

func nullDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
