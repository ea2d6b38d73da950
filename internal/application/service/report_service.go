package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/domain/event"
)

// ErrArchiveDisabled is returned when no statement storage is configured
var ErrArchiveDisabled = errors.New("statement archive is not configured")

// ReportService renders commission spreadsheets
type ReportService interface {
	SaleStatement(ctx context.Context, saleID int64) ([]byte, error)
	AllocationSummary(ctx context.Context, state string) ([]byte, error)

	// ArchiveStatement renders the statement and stores it, returning the
	// storage path. Re-archiving a sale overwrites its file.
	ArchiveStatement(ctx context.Context, saleID int64) (string, error)
	// HandleSaleConfirmed archives the statement of a confirmed sale
	HandleSaleConfirmed(ctx context.Context, evt *event.Event) error
}

type reportServiceImpl struct {
	commission CommissionService
	renderer   port.ReportRenderer
	storage    port.FileStorage
	logger     Logger
}

// NewReportService creates a new ReportService. storage may be nil, which
// disables archiving.
func NewReportService(commission CommissionService, renderer port.ReportRenderer, storage port.FileStorage, logger Logger) ReportService {
	return &reportServiceImpl{commission: commission, renderer: renderer, storage: storage, logger: orNop(logger)}
}

func (s *reportServiceImpl) SaleStatement(ctx context.Context, saleID int64) ([]byte, error) {
	stmt, err := s.commission.Statement(ctx, saleID)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.RenderStatement(stmt)
	if err != nil {
		s.logger.Error("Failed to render statement", "error", err, "sale_id", saleID)
		return nil, fmt.Errorf("render statement: %w", err)
	}
	return data, nil
}

func (s *reportServiceImpl) AllocationSummary(ctx context.Context, state string) ([]byte, error) {
	stmts, err := s.commission.Statements(ctx, state)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.RenderSummary(stmts)
	if err != nil {
		s.logger.Error("Failed to render summary", "error", err, "sales", len(stmts))
		return nil, fmt.Errorf("render summary: %w", err)
	}
	s.logger.Info("Allocation summary rendered", "sales", len(stmts), "bytes", len(data))
	return data, nil
}

func (s *reportServiceImpl) ArchiveStatement(ctx context.Context, saleID int64) (string, error) {
	if s.storage == nil {
		return "", ErrArchiveDisabled
	}

	stmt, err := s.commission.Statement(ctx, saleID)
	if err != nil {
		return "", err
	}
	data, err := s.renderer.RenderStatement(stmt)
	if err != nil {
		s.logger.Error("Failed to render statement", "error", err, "sale_id", saleID)
		return "", fmt.Errorf("render statement: %w", err)
	}

	p := statementPath(stmt.Sale.ID, stmt.Sale.Name)
	if err := s.storage.Save(ctx, p, data); err != nil {
		return "", fmt.Errorf("store statement: %w", err)
	}

	s.logger.Info("Statement archived", "sale_id", saleID, "path", p, "bytes", len(data))
	return p, nil
}

func (s *reportServiceImpl) HandleSaleConfirmed(ctx context.Context, evt *event.Event) error {
	_, err := s.ArchiveStatement(ctx, evt.RecordID)
	return err
}

// statementPath maps a sale to statements/<id>-<name>.xlsx with path
// separators and other unsafe characters replaced
func statementPath(id int64, name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(name))
	safe = strings.Trim(safe, ".")
	if safe == "" {
		return path.Join("statements", fmt.Sprintf("%d.xlsx", id))
	}
	return path.Join("statements", fmt.Sprintf("%d-%s.xlsx", id, safe))
}
