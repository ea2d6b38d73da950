package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/persistence/sqlite"
)

// LeadRepository implements port.LeadRepository
type LeadRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *sqlite.DB, logger *zap.Logger) port.LeadRepository {
	return &LeadRepository{db: db, logger: logger}
}

const leadColumns = `id, name, email, phone, budget, property_type, source, notes,
	score, reasoning, scored_at, created_at`

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	now := time.Now().UTC()
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO leads (name, email, phone, budget, property_type, source, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, lead.Name, lead.Email, lead.Phone, lead.Budget, lead.PropertyType, lead.Source, lead.Notes, now)
	if err != nil {
		r.logger.Error("Failed to create lead", zap.Error(err))
		return fmt.Errorf("failed to create lead: %w", err)
	}
	if lead.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	lead.CreatedAt = now
	return nil
}

// GetByID returns nil, nil when the lead does not exist
func (r *LeadRepository) GetByID(ctx context.Context, id int64) (*entity.Lead, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

func (r *LeadRepository) List(ctx context.Context, limit, offset int) ([]*entity.Lead, error) {
	return r.query(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
}

// ListUnscored returns the oldest leads without a score
func (r *LeadRepository) ListUnscored(ctx context.Context, limit int) ([]*entity.Lead, error) {
	return r.query(ctx, `SELECT `+leadColumns+` FROM leads WHERE score IS NULL ORDER BY id ASC LIMIT ?`, limit)
}

func (r *LeadRepository) UpdateScore(ctx context.Context, id int64, score int, reasoning string, at time.Time) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE leads SET score = ?, reasoning = ?, scored_at = ? WHERE id = ?`,
		score, reasoning, at.UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update lead score", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update lead score: %w", err)
	}
	return nil
}

func (r *LeadRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Lead, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []*entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var l entity.Lead
	var score sql.NullInt64
	var scoredAt sql.NullTime
	err := row.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Budget, &l.PropertyType, &l.Source, &l.Notes,
		&score, &l.Reasoning, &scoredAt, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if score.Valid {
		s := int(score.Int64)
		l.Score = &s
	}
	l.ScoredAt = nullTimePtr(scoredAt)
	return &l, nil
}

var _ port.LeadRepository = (*LeadRepository)(nil)
