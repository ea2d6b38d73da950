package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/domain/approval"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/persistence/sqlite"
)

// AuditRepository implements port.AuditRepository. The table rejects
// updates and deletes through triggers.
type AuditRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit log repository
func NewAuditRepository(db *sqlite.DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

func (r *AuditRepository) Append(ctx context.Context, entry *entity.AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Timestamp = entry.Timestamp.UTC()

	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO approval_audit_log (record_id, actor, from_state, to_state, action, reason, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.RecordID, entry.Actor, string(entry.FromState), string(entry.ToState),
		string(entry.Trigger), entry.Reason, entry.Timestamp)
	if err != nil {
		r.logger.Error("Failed to append audit entry", zap.Int64("record_id", entry.RecordID), zap.Error(err))
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListByRecordID returns entries in the order they were written
func (r *AuditRepository) ListByRecordID(ctx context.Context, recordID int64) ([]*entity.AuditEntry, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT id, record_id, actor, from_state, to_state, action, reason, timestamp
		FROM approval_audit_log
		WHERE record_id = ?
		ORDER BY id ASC
	`, recordID)
	if err != nil {
		r.logger.Error("Failed to get audit log", zap.Int64("record_id", recordID), zap.Error(err))
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	defer rows.Close()

	var entries []*entity.AuditEntry
	for rows.Next() {
		var e entity.AuditEntry
		var from, to, action string
		if err := rows.Scan(&e.ID, &e.RecordID, &e.Actor, &from, &to, &action, &e.Reason, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.FromState, e.ToState, e.Trigger = approval.State(from), approval.State(to), approval.Trigger(action)
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

var _ port.AuditRepository = (*AuditRepository)(nil)
