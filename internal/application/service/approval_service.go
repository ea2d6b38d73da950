package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/domain/approval"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
	"github.com/osusproperties/brokerage-core/pkg/utils"
)

// CreateRecordInput carries the fields of a new payment or vendor bill
type CreateRecordInput struct {
	Kind        string          `json:"kind" binding:"required"`
	Reference   string          `json:"reference" binding:"required"`
	PartnerName string          `json:"partner_name"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
}

// ApprovalService manages approval records and their audit trail.
// State changes go through the workflow engine.
type ApprovalService interface {
	CreateRecord(ctx context.Context, in CreateRecordInput, actor string) (*entity.ApprovalRecord, error)
	GetRecord(ctx context.Context, id int64) (*entity.ApprovalRecord, error)
	ListRecords(ctx context.Context, state approval.State, limit, offset int) ([]*entity.ApprovalRecord, error)
	History(ctx context.Context, recordID int64) ([]*entity.AuditEntry, error)
}

type approvalServiceImpl struct {
	recordRepo port.ApprovalRecordRepository
	auditRepo  port.AuditRepository
	txManager  port.TransactionManager
	logger     Logger
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	recordRepo port.ApprovalRecordRepository,
	auditRepo port.AuditRepository,
	txManager port.TransactionManager,
	logger Logger,
) ApprovalService {
	return &approvalServiceImpl{
		recordRepo: recordRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		logger:     orNop(logger),
	}
}

// CreateRecord stores a draft record and its initial audit entry
func (s *approvalServiceImpl) CreateRecord(ctx context.Context, in CreateRecordInput, actor string) (*entity.ApprovalRecord, error) {
	if actor == "" {
		return nil, fmt.Errorf("%w: actor is required", ErrInvalidRecord)
	}
	if in.Kind != entity.RecordKindPayment && in.Kind != entity.RecordKindVendorBill {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidRecord, in.Kind)
	}
	reference := utils.SanitizeString(in.Reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrInvalidRecord)
	}
	if err := utils.ValidateAmount("amount", in.Amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	currency := in.Currency
	if currency == "" {
		currency = entity.DefaultCurrency
	}

	record := &entity.ApprovalRecord{
		Kind:        in.Kind,
		Reference:   reference,
		PartnerName: utils.SanitizeString(in.PartnerName),
		Amount:      in.Amount,
		Currency:    currency,
		State:       approval.StateDraft,
		CreatedBy:   actor,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.recordRepo.Create(txCtx, record); err != nil {
			return fmt.Errorf("create record: %w", err)
		}

		entry := &entity.AuditEntry{
			RecordID:  record.ID,
			Actor:     actor,
			ToState:   approval.StateDraft,
			Trigger:   approval.TriggerCreate,
			Timestamp: time.Now(),
		}
		if err := s.auditRepo.Append(txCtx, entry); err != nil {
			return fmt.Errorf("create audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create approval record", "error", err, "reference", reference)
		return nil, err
	}

	s.logger.Info("Approval record created", "id", record.ID, "kind", record.Kind, "reference", reference)
	return record, nil
}

// GetRecord returns ErrRecordNotFound for unknown IDs
func (s *approvalServiceImpl) GetRecord(ctx context.Context, id int64) (*entity.ApprovalRecord, error) {
	record, err := s.recordRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get approval record", "error", err, "id", id)
		return nil, err
	}
	if record == nil {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

// ListRecords lists records, optionally restricted to one state
func (s *approvalServiceImpl) ListRecords(ctx context.Context, state approval.State, limit, offset int) ([]*entity.ApprovalRecord, error) {
	if state != "" && !state.IsValid() {
		return nil, fmt.Errorf("%w: %s", approval.ErrInvalidState, state)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.recordRepo.List(ctx, state, limit, offset)
}

// History returns the audit entries of a record, oldest first
func (s *approvalServiceImpl) History(ctx context.Context, recordID int64) ([]*entity.AuditEntry, error) {
	if _, err := s.GetRecord(ctx, recordID); err != nil {
		return nil, err
	}
	return s.auditRepo.ListByRecordID(ctx, recordID)
}
