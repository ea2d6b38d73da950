package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/domain/approval"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/persistence/sqlite"
)

// ApprovalRecordRepository implements port.ApprovalRecordRepository
type ApprovalRecordRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewApprovalRecordRepository creates a new approval record repository
func NewApprovalRecordRepository(db *sqlite.DB, logger *zap.Logger) port.ApprovalRecordRepository {
	return &ApprovalRecordRepository{db: db, logger: logger}
}

const recordColumns = `id, kind, reference, partner_name, amount, currency, state, created_by,
	reviewer_id, reviewed_at, approver_id, approved_at, poster_id, posted_at, created_at, updated_at`

func (r *ApprovalRecordRepository) Create(ctx context.Context, record *entity.ApprovalRecord) error {
	now := time.Now().UTC()
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO approval_records (
			kind, reference, partner_name, amount, currency, state, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.Kind, record.Reference, record.PartnerName, record.Amount, record.Currency,
		string(record.State), record.CreatedBy, now, now)
	if err != nil {
		r.logger.Error("Failed to create approval record", zap.String("reference", record.Reference), zap.Error(err))
		return fmt.Errorf("failed to create approval record: %w", err)
	}

	if record.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	record.CreatedAt, record.UpdatedAt = now, now
	return nil
}

// GetByID returns nil, nil when the record does not exist
func (r *ApprovalRecordRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalRecord, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx, `SELECT `+recordColumns+` FROM approval_records WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get approval record", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get approval record: %w", err)
	}
	return record, nil
}

// List filters by state unless state is empty
func (r *ApprovalRecordRepository) List(ctx context.Context, state approval.State, limit, offset int) ([]*entity.ApprovalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM approval_records`
	args := []interface{}{}
	if state != "" {
		query += ` WHERE state = ?`
		args = append(args, string(state))
	}
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list approval records", zap.Error(err))
		return nil, fmt.Errorf("failed to list approval records: %w", err)
	}
	defer rows.Close()

	var records []*entity.ApprovalRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// SaveTransition writes state and stamps only if the row is still in from
func (r *ApprovalRecordRepository) SaveTransition(ctx context.Context, record *entity.ApprovalRecord, from approval.State) error {
	now := time.Now().UTC()
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE approval_records SET
			state = ?,
			reviewer_id = ?, reviewed_at = ?,
			approver_id = ?, approved_at = ?,
			poster_id = ?, posted_at = ?,
			updated_at = ?
		WHERE id = ? AND state = ?
	`, string(record.State),
		record.ReviewerID, timeArg(record.ReviewedAt),
		record.ApproverID, timeArg(record.ApprovedAt),
		record.PosterID, timeArg(record.PostedAt),
		now, record.ID, string(from))
	if err != nil {
		r.logger.Error("Failed to save transition", zap.Int64("id", record.ID), zap.Error(err))
		return fmt.Errorf("failed to save transition: %w", err)
	}

	if err := checkAffected(result, port.ErrStaleRecord); err != nil {
		return err
	}
	record.UpdatedAt = now
	return nil
}

func scanRecord(row rowScanner) (*entity.ApprovalRecord, error) {
	var rec entity.ApprovalRecord
	var state string
	var reviewedAt, approvedAt, postedAt sql.NullTime
	err := row.Scan(
		&rec.ID, &rec.Kind, &rec.Reference, &rec.PartnerName, &rec.Amount, &rec.Currency, &state, &rec.CreatedBy,
		&rec.ReviewerID, &reviewedAt, &rec.ApproverID, &approvedAt, &rec.PosterID, &postedAt,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.State = approval.State(state)
	rec.ReviewedAt = nullTimePtr(reviewedAt)
	rec.ApprovedAt = nullTimePtr(approvedAt)
	rec.PostedAt = nullTimePtr(postedAt)
	return &rec, nil
}

var _ port.ApprovalRecordRepository = (*ApprovalRecordRepository)(nil)
