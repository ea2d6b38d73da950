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

// ParamRepository stores key-value parameters and also serves as the local port.ParamReader
type ParamRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewParamRepository creates a new parameter repository
func NewParamRepository(db *sqlite.DB, logger *zap.Logger) *ParamRepository {
	return &ParamRepository{db: db, logger: logger}
}

// Get returns nil, nil for unknown keys
func (r *ParamRepository) Get(ctx context.Context, key string) (*entity.SystemParam, error) {
	var p entity.SystemParam
	err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT key, value, description, updated_at FROM system_params WHERE key = ?`, key,
	).Scan(&p.Key, &p.Value, &p.Description, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get parameter", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to get parameter: %w", err)
	}
	return &p, nil
}

// Set upserts a parameter; an empty description keeps the stored one
func (r *ParamRepository) Set(ctx context.Context, key, value, description string) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO system_params (key, value, description, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			description = CASE WHEN excluded.description = '' THEN system_params.description ELSE excluded.description END,
			updated_at = excluded.updated_at
	`, key, value, description, time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to set parameter", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to set parameter: %w", err)
	}
	return nil
}

func (r *ParamRepository) List(ctx context.Context) ([]*entity.SystemParam, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT key, value, description, updated_at FROM system_params ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list parameters: %w", err)
	}
	defer rows.Close()

	var params []*entity.SystemParam
	for rows.Next() {
		var p entity.SystemParam
		if err := rows.Scan(&p.Key, &p.Value, &p.Description, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}
		params = append(params, &p)
	}
	return params, rows.Err()
}

// GetParam implements port.ParamReader
func (r *ParamRepository) GetParam(ctx context.Context, key string) (string, bool, error) {
	p, err := r.Get(ctx, key)
	if err != nil || p == nil {
		return "", false, err
	}
	return p.Value, true, nil
}

var (
	_ port.ParamRepository = (*ParamRepository)(nil)
	_ port.ParamReader     = (*ParamRepository)(nil)
)
