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

// SaleRepository implements port.SaleRepository
type SaleRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewSaleRepository creates a new sale repository
func NewSaleRepository(db *sqlite.DB, logger *zap.Logger) port.SaleRepository {
	return &SaleRepository{db: db, logger: logger}
}

const saleColumns = `id, name, buyer_name, project, unit, sale_value, amount_untaxed,
	currency, state, created_by, confirmed_at, cancelled_at, created_at, updated_at`

// Create inserts the sale and any beneficiaries it carries
func (r *SaleRepository) Create(ctx context.Context, sale *entity.Sale) error {
	now := time.Now().UTC()
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO sales (
			name, buyer_name, project, unit, sale_value, amount_untaxed,
			currency, state, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sale.Name, sale.BuyerName, sale.Project, sale.Unit,
		sale.SaleValue, sale.AmountUntaxed, sale.Currency, sale.State,
		sale.CreatedBy, now, now,
	)
	if err != nil {
		r.logger.Error("Failed to create sale", zap.String("name", sale.Name), zap.Error(err))
		return fmt.Errorf("failed to create sale: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	sale.ID = id
	sale.CreatedAt, sale.UpdatedAt = now, now

	if len(sale.Beneficiaries) > 0 {
		return r.ReplaceBeneficiaries(ctx, id, sale.Beneficiaries)
	}
	return nil
}

// GetByID returns nil, nil when the sale does not exist
func (r *SaleRepository) GetByID(ctx context.Context, id int64) (*entity.Sale, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = ?`, id)

	sale, err := scanSale(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get sale", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}

	beneficiaries, err := r.beneficiaries(ctx, id)
	if err != nil {
		return nil, err
	}
	sale.Beneficiaries = beneficiaries

	return sale, nil
}

// List returns sales newest first without their beneficiaries
func (r *SaleRepository) List(ctx context.Context, limit, offset int) ([]*entity.Sale, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT `+saleColumns+` FROM sales ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list sales", zap.Error(err))
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return r.collect(rows)
}

// ListByState returns all sales in state, with beneficiaries
func (r *SaleRepository) ListByState(ctx context.Context, state string) ([]*entity.Sale, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE state = ? ORDER BY id ASC`, state)
	if err != nil {
		r.logger.Error("Failed to list sales by state", zap.String("state", state), zap.Error(err))
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	sales, err := r.collect(rows)
	if err != nil {
		return nil, err
	}
	for _, s := range sales {
		if s.Beneficiaries, err = r.beneficiaries(ctx, s.ID); err != nil {
			return nil, err
		}
	}
	return sales, nil
}

// UpdateState is a compare-and-set on the sale state
func (r *SaleRepository) UpdateState(ctx context.Context, id int64, from, to string, at time.Time) error {
	at = at.UTC()
	var confirmedAt, cancelledAt interface{}
	switch to {
	case entity.SaleStateConfirmed:
		confirmedAt = at
	case entity.SaleStateCancelled:
		cancelledAt = at
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE sales SET
			state = ?,
			confirmed_at = COALESCE(?, confirmed_at),
			cancelled_at = COALESCE(?, cancelled_at),
			updated_at = ?
		WHERE id = ? AND state = ?
	`, to, confirmedAt, cancelledAt, at, id, from)
	if err != nil {
		r.logger.Error("Failed to update sale state", zap.Int64("id", id), zap.String("to", to), zap.Error(err))
		return fmt.Errorf("failed to update sale state: %w", err)
	}

	return checkAffected(result, port.ErrStaleRecord)
}

// ReplaceBeneficiaries deletes the existing rows and inserts rows in order
func (r *SaleRepository) ReplaceBeneficiaries(ctx context.Context, saleID int64, rows []entity.SaleBeneficiary) error {
	exec := r.db.Executor(ctx)

	if _, err := exec.ExecContext(ctx, `DELETE FROM sale_beneficiaries WHERE sale_id = ?`, saleID); err != nil {
		return fmt.Errorf("failed to clear beneficiaries: %w", err)
	}

	for i := range rows {
		b := &rows[i]
		b.SaleID = saleID
		b.Sequence = i + 1
		result, err := exec.ExecContext(ctx, `
			INSERT INTO sale_beneficiaries (
				sale_id, sequence, role, partner_id, partner_name,
				calc_type, rate_or_amount, computed_amount
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, saleID, b.Sequence, string(b.Role), b.PartnerID, b.PartnerName,
			string(b.CalcType), b.RateOrAmount, b.ComputedAmount)
		if err != nil {
			r.logger.Error("Failed to insert beneficiary", zap.Int64("sale_id", saleID), zap.String("role", string(b.Role)), zap.Error(err))
			return fmt.Errorf("failed to insert beneficiary: %w", err)
		}
		if b.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
	}

	_, err := exec.ExecContext(ctx, `UPDATE sales SET updated_at = ? WHERE id = ?`, time.Now().UTC(), saleID)
	return err
}

func (r *SaleRepository) beneficiaries(ctx context.Context, saleID int64) ([]entity.SaleBeneficiary, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT id, sale_id, sequence, role, partner_id, partner_name,
			calc_type, rate_or_amount, computed_amount
		FROM sale_beneficiaries
		WHERE sale_id = ?
		ORDER BY sequence ASC
	`, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get beneficiaries: %w", err)
	}
	defer rows.Close()

	var out []entity.SaleBeneficiary
	for rows.Next() {
		var b entity.SaleBeneficiary
		var role, calcType string
		if err := rows.Scan(
			&b.ID, &b.SaleID, &b.Sequence, &role, &b.PartnerID, &b.PartnerName,
			&calcType, &b.RateOrAmount, &b.ComputedAmount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan beneficiary: %w", err)
		}
		b.Role = commission.Role(role)
		b.CalcType = commission.CalcType(calcType)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SaleRepository) collect(rows *sql.Rows) ([]*entity.Sale, error) {
	defer rows.Close()

	var sales []*entity.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSale(row rowScanner) (*entity.Sale, error) {
	var s entity.Sale
	var confirmedAt, cancelledAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.Name, &s.BuyerName, &s.Project, &s.Unit, &s.SaleValue, &s.AmountUntaxed,
		&s.Currency, &s.State, &s.CreatedBy, &confirmedAt, &cancelledAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.ConfirmedAt = nullTimePtr(confirmedAt)
	s.CancelledAt = nullTimePtr(cancelledAt)
	return &s, nil
}

var _ port.SaleRepository = (*SaleRepository)(nil)
