package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/domain/commission"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/persistence/sqlite"
)

// PurchaseOrderRepository implements port.PurchaseOrderRepository
type PurchaseOrderRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewPurchaseOrderRepository creates a new commission purchase order repository
func NewPurchaseOrderRepository(db *sqlite.DB, logger *zap.Logger) port.PurchaseOrderRepository {
	return &PurchaseOrderRepository{db: db, logger: logger}
}

const poColumns = `id, sale_id, partner_id, partner_name, reference, state, total, currency,
	export_status, odoo_id, export_error, exported_at, created_at, updated_at`

// Create inserts the order and its lines. Call inside a transaction.
func (r *PurchaseOrderRepository) Create(ctx context.Context, po *entity.CommissionPurchaseOrder) error {
	exec := r.db.Executor(ctx)
	now := time.Now().UTC()

	result, err := exec.ExecContext(ctx, `
		INSERT INTO commission_purchase_orders (
			sale_id, partner_id, partner_name, reference, state, total,
			currency, export_status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, po.SaleID, po.PartnerID, po.PartnerName, po.Reference, po.State, po.Total,
		po.Currency, po.ExportStatus, now, now)
	if err != nil {
		r.logger.Error("Failed to create purchase order",
			zap.Int64("sale_id", po.SaleID), zap.Int64("partner_id", po.PartnerID), zap.Error(err))
		return fmt.Errorf("failed to create purchase order: %w", err)
	}

	if po.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	po.CreatedAt, po.UpdatedAt = now, now

	for i := range po.Lines {
		line := &po.Lines[i]
		line.OrderID = po.ID
		res, err := exec.ExecContext(ctx, `
			INSERT INTO commission_po_lines (order_id, role, description, amount)
			VALUES (?, ?, ?, ?)
		`, po.ID, string(line.Role), line.Description, line.Amount)
		if err != nil {
			return fmt.Errorf("failed to create purchase order line: %w", err)
		}
		if line.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
	}

	return nil
}

// GetByID returns nil, nil when the order does not exist
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id int64) (*entity.CommissionPurchaseOrder, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx, `SELECT `+poColumns+` FROM commission_purchase_orders WHERE id = ?`, id)
	po, err := scanPO(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase order: %w", err)
	}
	if po.Lines, err = r.lines(ctx, po.ID); err != nil {
		return nil, err
	}
	return po, nil
}

// GetBySaleID returns the orders of a sale with their lines
func (r *PurchaseOrderRepository) GetBySaleID(ctx context.Context, saleID int64) ([]*entity.CommissionPurchaseOrder, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT `+poColumns+` FROM commission_purchase_orders WHERE sale_id = ? ORDER BY id ASC`, saleID)
	if err != nil {
		r.logger.Error("Failed to get purchase orders", zap.Int64("sale_id", saleID), zap.Error(err))
		return nil, fmt.Errorf("failed to get purchase orders: %w", err)
	}
	return r.collectWithLines(ctx, rows)
}

// ListByExportStatus returns the oldest orders in status first
func (r *PurchaseOrderRepository) ListByExportStatus(ctx context.Context, status string, limit int) ([]*entity.CommissionPurchaseOrder, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT `+poColumns+` FROM commission_purchase_orders
		WHERE export_status = ? AND state = ?
		ORDER BY id ASC
		LIMIT ?
	`, status, entity.POStateDraft, limit)
	if err != nil {
		r.logger.Error("Failed to list purchase orders", zap.String("export_status", status), zap.Error(err))
		return nil, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	return r.collectWithLines(ctx, rows)
}

func (r *PurchaseOrderRepository) UpdateState(ctx context.Context, id int64, state string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE commission_purchase_orders SET state = ?, updated_at = ? WHERE id = ?`,
		state, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update purchase order state: %w", err)
	}
	return checkAffected(result, fmt.Errorf("purchase order %d not found", id))
}

func (r *PurchaseOrderRepository) UpdateExportStatus(ctx context.Context, id int64, status, errMsg string) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE commission_purchase_orders SET export_status = ?, export_error = ?, updated_at = ? WHERE id = ?`,
		status, errMsg, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update export status", zap.Int64("id", id), zap.String("status", status), zap.Error(err))
		return fmt.Errorf("failed to update export status: %w", err)
	}
	return nil
}

// MarkExported records a successful ERP export of a pending order. An order
// cancelled while the export was in flight is flagged for reversal instead.
// ErrStaleRecord if the order is no longer pending.
func (r *PurchaseOrderRepository) MarkExported(ctx context.Context, id int64, odooID int64, at time.Time) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE commission_purchase_orders
		SET export_status = CASE WHEN state = ? THEN ? ELSE ? END,
			odoo_id = ?, export_error = '', exported_at = ?, updated_at = ?
		WHERE id = ? AND export_status = ?
	`, entity.POStateCancelled, entity.ExportStatusNeedsReversal, entity.ExportStatusExported,
		odooID, at.UTC(), time.Now().UTC(), id, entity.ExportStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark purchase order exported: %w", err)
	}
	return checkAffected(result, port.ErrStaleRecord)
}

func (r *PurchaseOrderRepository) lines(ctx context.Context, orderID int64) ([]entity.CommissionPOLine, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT id, order_id, role, description, amount FROM commission_po_lines WHERE order_id = ? ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase order lines: %w", err)
	}
	defer rows.Close()

	var out []entity.CommissionPOLine
	for rows.Next() {
		var l entity.CommissionPOLine
		var role string
		if err := rows.Scan(&l.ID, &l.OrderID, &role, &l.Description, &l.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan purchase order line: %w", err)
		}
		l.Role = commission.Role(role)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PurchaseOrderRepository) collectWithLines(ctx context.Context, rows *sql.Rows) ([]*entity.CommissionPurchaseOrder, error) {
	var orders []*entity.CommissionPurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan purchase order: %w", err)
		}
		orders = append(orders, po)
	}
	err := rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// lines are loaded after the cursor is closed; in-memory databases have a single connection
	for _, po := range orders {
		if po.Lines, err = r.lines(ctx, po.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func scanPO(row rowScanner) (*entity.CommissionPurchaseOrder, error) {
	var po entity.CommissionPurchaseOrder
	var odooID sql.NullInt64
	var exportedAt sql.NullTime
	err := row.Scan(
		&po.ID, &po.SaleID, &po.PartnerID, &po.PartnerName, &po.Reference, &po.State, &po.Total, &po.Currency,
		&po.ExportStatus, &odooID, &po.ExportError, &exportedAt, &po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if odooID.Valid {
		id := odooID.Int64
		po.OdooID = &id
	}
	po.ExportedAt = nullTimePtr(exportedAt)
	return &po, nil
}

var _ port.PurchaseOrderRepository = (*PurchaseOrderRepository)(nil)
