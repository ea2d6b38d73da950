package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osusproperties/brokerage-core/internal/application/dispatcher"
	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/domain/commission"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
	"github.com/osusproperties/brokerage-core/internal/domain/event"
	"github.com/osusproperties/brokerage-core/pkg/utils"
)

// CommissionPolicy is the commission configuration fixed at construction
type CommissionPolicy struct {
	Currency   string
	Rounding   commission.Rounding
	Validation commission.ValidationPolicy
	// ExportEnabled marks new purchase orders pending for the ERP export worker
	ExportEnabled bool
}

// BeneficiaryInput is one beneficiary row as submitted by a client
type BeneficiaryInput struct {
	Role         string          `json:"role" binding:"required"`
	PartnerID    int64           `json:"partner_id"`
	PartnerName  string          `json:"partner_name"`
	CalcType     string          `json:"calc_type" binding:"required"`
	RateOrAmount decimal.Decimal `json:"rate_or_amount"`
}

// SaleInput carries the fields of a new sale
type SaleInput struct {
	Name          string             `json:"name" binding:"required"`
	BuyerName     string             `json:"buyer_name"`
	Project       string             `json:"project"`
	Unit          string             `json:"unit"`
	SaleValue     decimal.Decimal    `json:"sale_value"`
	AmountUntaxed decimal.Decimal    `json:"amount_untaxed"`
	Currency      string             `json:"currency"`
	Beneficiaries []BeneficiaryInput `json:"beneficiaries"`
}

// AllocationResult pairs an allocation with its ceiling verdict
type AllocationResult struct {
	Allocation commission.Allocation `json:"allocation"`
	Verdict    commission.Verdict    `json:"verdict"`
}

// CommissionService owns the sale lifecycle and the commission purchase orders
type CommissionService interface {
	Resolve(calc string, rateOrAmount decimal.Decimal, base commission.Base) (decimal.Decimal, error)
	Preview(base commission.Base, beneficiaries []BeneficiaryInput) (*AllocationResult, error)

	CreateSale(ctx context.Context, in SaleInput, actor string) (*entity.Sale, *AllocationResult, error)
	GetSale(ctx context.Context, id int64) (*entity.Sale, error)
	ListSales(ctx context.Context, limit, offset int) ([]*entity.Sale, error)
	SetBeneficiaries(ctx context.Context, saleID int64, beneficiaries []BeneficiaryInput) (*entity.Sale, *AllocationResult, error)
	ConfirmSale(ctx context.Context, saleID int64, actor string) (*entity.Sale, []*entity.CommissionPurchaseOrder, error)
	CancelSale(ctx context.Context, saleID int64, actor string) (*entity.Sale, error)
	PurchaseOrders(ctx context.Context, saleID int64) ([]*entity.CommissionPurchaseOrder, error)

	// Statement gathers what a commission statement shows. Over-allocated
	// sales still produce a statement carrying the over verdict.
	Statement(ctx context.Context, saleID int64) (*port.SaleStatement, error)
	Statements(ctx context.Context, state string) ([]*port.SaleStatement, error)
}

type commissionServiceImpl struct {
	saleRepo   port.SaleRepository
	poRepo     port.PurchaseOrderRepository
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	policy     CommissionPolicy
	logger     Logger
	now        func() time.Time
}

// NewCommissionService creates a new CommissionService. d may be nil.
func NewCommissionService(
	saleRepo port.SaleRepository,
	poRepo port.PurchaseOrderRepository,
	txManager port.TransactionManager,
	d dispatcher.Dispatcher,
	policy CommissionPolicy,
	logger Logger,
) CommissionService {
	if policy.Currency == "" {
		policy.Currency = entity.DefaultCurrency
	}
	return &commissionServiceImpl{
		saleRepo:   saleRepo,
		poRepo:     poRepo,
		txManager:  txManager,
		dispatcher: d,
		policy:     policy,
		logger:     orNop(logger),
		now:        time.Now,
	}
}

// Resolve computes a single beneficiary amount
func (s *commissionServiceImpl) Resolve(calc string, rateOrAmount decimal.Decimal, base commission.Base) (decimal.Decimal, error) {
	ct, err := commission.ParseCalcType(calc)
	if err != nil {
		return decimal.Zero, err
	}
	return commission.Resolve(ct, rateOrAmount, base.SaleValue, base.UntaxedTotal, s.policy.Rounding)
}

// Preview runs resolve, aggregate and validate without touching storage
func (s *commissionServiceImpl) Preview(base commission.Base, beneficiaries []BeneficiaryInput) (*AllocationResult, error) {
	rows, err := toDomain(beneficiaries)
	if err != nil {
		return nil, err
	}
	return s.allocate(rows, base)
}

func (s *commissionServiceImpl) allocate(rows []commission.Beneficiary, base commission.Base) (*AllocationResult, error) {
	alloc, err := commission.Aggregate(rows, base, s.policy.Rounding)
	if err != nil {
		return nil, err
	}
	verdict, err := commission.Validate(alloc, base, s.policy.Validation)
	if err != nil {
		return nil, err
	}
	return &AllocationResult{Allocation: alloc, Verdict: verdict}, nil
}

// CreateSale stores a draft sale. Beneficiaries, if any, pass the same
// validation as SetBeneficiaries.
func (s *commissionServiceImpl) CreateSale(ctx context.Context, in SaleInput, actor string) (*entity.Sale, *AllocationResult, error) {
	name := utils.SanitizeString(in.Name)
	if name == "" {
		return nil, nil, fmt.Errorf("%w: name is required", ErrInvalidSale)
	}
	if err := utils.ValidateAmount("sale_value", in.SaleValue); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidSale, err)
	}
	if err := utils.ValidateAmount("amount_untaxed", in.AmountUntaxed); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidSale, err)
	}
	currency := in.Currency
	if currency == "" {
		currency = s.policy.Currency
	}

	sale := &entity.Sale{
		Name:          name,
		BuyerName:     utils.SanitizeString(in.BuyerName),
		Project:       utils.SanitizeString(in.Project),
		Unit:          utils.SanitizeString(in.Unit),
		SaleValue:     in.SaleValue,
		AmountUntaxed: in.AmountUntaxed,
		Currency:      currency,
		State:         entity.SaleStateDraft,
		CreatedBy:     actor,
	}

	rows, err := toDomain(in.Beneficiaries)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.allocate(rows, sale.Base())
	if err != nil {
		return nil, nil, err
	}
	sale.Beneficiaries = toRows(result.Allocation)

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.saleRepo.Create(txCtx, sale)
	})
	if err != nil {
		s.logger.Error("Failed to create sale", "error", err, "name", name)
		return nil, nil, err
	}

	s.logger.Info("Sale created", "id", sale.ID, "name", sale.Name, "beneficiaries", len(sale.Beneficiaries))
	s.warnIfNeeded(ctx, sale, result.Verdict)
	return sale, result, nil
}

func (s *commissionServiceImpl) GetSale(ctx context.Context, id int64) (*entity.Sale, error) {
	sale, err := s.saleRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get sale", "error", err, "id", id)
		return nil, err
	}
	if sale == nil {
		return nil, ErrSaleNotFound
	}
	return sale, nil
}

func (s *commissionServiceImpl) ListSales(ctx context.Context, limit, offset int) ([]*entity.Sale, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.saleRepo.List(ctx, limit, offset)
}

// SetBeneficiaries replaces the beneficiary collection of a draft sale.
// In strict mode an over-allocation is rejected and nothing is saved.
func (s *commissionServiceImpl) SetBeneficiaries(ctx context.Context, saleID int64, beneficiaries []BeneficiaryInput) (*entity.Sale, *AllocationResult, error) {
	rows, err := toDomain(beneficiaries)
	if err != nil {
		return nil, nil, err
	}

	var sale *entity.Sale
	var result *AllocationResult
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if sale, err = s.GetSale(txCtx, saleID); err != nil {
			return err
		}
		if !sale.IsEditable() {
			return ErrSaleLocked
		}

		if result, err = s.allocate(rows, sale.Base()); err != nil {
			return err
		}

		sale.Beneficiaries = toRows(result.Allocation)
		return s.saleRepo.ReplaceBeneficiaries(txCtx, saleID, sale.Beneficiaries)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Beneficiaries updated", "sale_id", saleID, "count", len(rows), "total", result.Allocation.Total.String())
	s.warnIfNeeded(ctx, sale, result.Verdict)
	return sale, result, nil
}

// ConfirmSale confirms a draft sale and creates one commission purchase
// order per distinct partner. Re-confirming a confirmed sale returns its
// existing orders without creating new ones.
func (s *commissionServiceImpl) ConfirmSale(ctx context.Context, saleID int64, actor string) (*entity.Sale, []*entity.CommissionPurchaseOrder, error) {
	var (
		sale    *entity.Sale
		orders  []*entity.CommissionPurchaseOrder
		result  *AllocationResult
		created int
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if sale, err = s.GetSale(txCtx, saleID); err != nil {
			return err
		}

		switch sale.State {
		case entity.SaleStateConfirmed:
			orders, err = s.poRepo.GetBySaleID(txCtx, saleID)
			return err
		case entity.SaleStateDraft:
		default:
			return fmt.Errorf("%w: cannot confirm a %s sale", ErrSaleState, sale.State)
		}

		if result, err = s.allocate(sale.DomainBeneficiaries(), sale.Base()); err != nil {
			return err
		}
		if err := result.Allocation.RequirePartners(); err != nil {
			return err
		}

		existing, err := s.poRepo.GetBySaleID(txCtx, saleID)
		if err != nil {
			return err
		}
		hasOrder := make(map[int64]bool, len(existing))
		for _, po := range existing {
			hasOrder[po.PartnerID] = true
		}
		orders = existing

		for _, pt := range result.Allocation.ByPartner() {
			if hasOrder[pt.PartnerID] || !pt.Total.IsPositive() {
				continue
			}
			po := s.newPurchaseOrder(sale, pt, len(orders)+1)
			if err := s.poRepo.Create(txCtx, po); err != nil {
				return err
			}
			orders = append(orders, po)
			created++
		}

		sale.Beneficiaries = toRows(result.Allocation)
		if err := s.saleRepo.ReplaceBeneficiaries(txCtx, saleID, sale.Beneficiaries); err != nil {
			return err
		}

		now := s.now()
		if err := s.saleRepo.UpdateState(txCtx, saleID, entity.SaleStateDraft, entity.SaleStateConfirmed, now); err != nil {
			return err
		}
		sale.State = entity.SaleStateConfirmed
		sale.ConfirmedAt = &now
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to confirm sale", "error", err, "sale_id", saleID, "actor", actor)
		return nil, nil, err
	}

	if result == nil {
		return sale, orders, nil
	}

	s.logger.Info("Sale confirmed", "sale_id", saleID, "actor", actor, "orders_created", created)
	s.dispatch(ctx, event.NewEvent(event.TypeSaleConfirmed, sale.ID, sale.Name, map[string]interface{}{
		event.KeyActor:      actor,
		event.KeyTotal:      result.Allocation.Total.String(),
		event.KeyOrderCount: len(orders),
	}))
	s.warnIfNeeded(ctx, sale, result.Verdict)
	return sale, orders, nil
}

func (s *commissionServiceImpl) newPurchaseOrder(sale *entity.Sale, pt commission.PartnerTotal, seq int) *entity.CommissionPurchaseOrder {
	status := entity.ExportStatusSkipped
	if s.policy.ExportEnabled {
		status = entity.ExportStatusPending
	}

	po := &entity.CommissionPurchaseOrder{
		SaleID:       sale.ID,
		PartnerID:    pt.PartnerID,
		PartnerName:  pt.PartnerName,
		Reference:    fmt.Sprintf("CPO/%d/%d", sale.ID, seq),
		State:        entity.POStateDraft,
		Total:        pt.Total,
		Currency:     sale.Currency,
		ExportStatus: status,
	}
	for _, l := range pt.Lines {
		po.Lines = append(po.Lines, entity.CommissionPOLine{
			Role:        l.Role,
			Description: fmt.Sprintf("%s commission - %s", l.Role, sale.Name),
			Amount:      l.Amount,
		})
	}
	return po
}

// CancelSale cancels a draft or confirmed sale. Orders not yet exported are
// cancelled; exported ones are flagged for manual reversal in the ERP.
func (s *commissionServiceImpl) CancelSale(ctx context.Context, saleID int64, actor string) (*entity.Sale, error) {
	var sale *entity.Sale
	var cancelled, reversals int

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if sale, err = s.GetSale(txCtx, saleID); err != nil {
			return err
		}
		if sale.State == entity.SaleStateCancelled {
			return fmt.Errorf("%w: sale is already cancelled", ErrSaleState)
		}

		orders, err := s.poRepo.GetBySaleID(txCtx, saleID)
		if err != nil {
			return err
		}
		for _, po := range orders {
			switch {
			case po.ExportStatus == entity.ExportStatusExported:
				if err := s.poRepo.UpdateExportStatus(txCtx, po.ID, entity.ExportStatusNeedsReversal, ""); err != nil {
					return err
				}
				reversals++
			case po.State != entity.POStateCancelled:
				if err := s.poRepo.UpdateState(txCtx, po.ID, entity.POStateCancelled); err != nil {
					return err
				}
				cancelled++
			}
		}

		now := s.now()
		if err := s.saleRepo.UpdateState(txCtx, saleID, sale.State, entity.SaleStateCancelled, now); err != nil {
			return err
		}
		sale.State = entity.SaleStateCancelled
		sale.CancelledAt = &now
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to cancel sale", "error", err, "sale_id", saleID, "actor", actor)
		return nil, err
	}

	s.logger.Info("Sale cancelled", "sale_id", saleID, "actor", actor, "orders_cancelled", cancelled, "needs_reversal", reversals)
	s.dispatch(ctx, event.NewEvent(event.TypeSaleCancelled, sale.ID, sale.Name, map[string]interface{}{
		event.KeyActor:      actor,
		event.KeyOrderCount: cancelled,
	}))
	return sale, nil
}

func (s *commissionServiceImpl) PurchaseOrders(ctx context.Context, saleID int64) ([]*entity.CommissionPurchaseOrder, error) {
	if _, err := s.GetSale(ctx, saleID); err != nil {
		return nil, err
	}
	return s.poRepo.GetBySaleID(ctx, saleID)
}

func (s *commissionServiceImpl) Statement(ctx context.Context, saleID int64) (*port.SaleStatement, error) {
	sale, err := s.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	return s.statement(ctx, sale)
}

// Statements builds statements for every sale in state; empty means confirmed
func (s *commissionServiceImpl) Statements(ctx context.Context, state string) ([]*port.SaleStatement, error) {
	if state == "" {
		state = entity.SaleStateConfirmed
	}
	sales, err := s.saleRepo.ListByState(ctx, state)
	if err != nil {
		return nil, err
	}

	out := make([]*port.SaleStatement, 0, len(sales))
	for _, sale := range sales {
		stmt, err := s.statement(ctx, sale)
		if err != nil {
			return nil, fmt.Errorf("statement for %s: %w", sale.Name, err)
		}
		out = append(out, stmt)
	}
	return out, nil
}

func (s *commissionServiceImpl) statement(ctx context.Context, sale *entity.Sale) (*port.SaleStatement, error) {
	alloc, err := commission.Aggregate(sale.DomainBeneficiaries(), sale.Base(), s.policy.Rounding)
	if err != nil {
		return nil, err
	}
	verdict, err := commission.Validate(alloc, sale.Base(), s.policy.Validation)
	if err != nil && !errors.Is(err, commission.ErrOverAllocation) {
		return nil, err
	}

	orders, err := s.poRepo.GetBySaleID(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	return &port.SaleStatement{Sale: sale, Allocation: alloc, Verdict: verdict, Orders: orders}, nil
}

func (s *commissionServiceImpl) warnIfNeeded(ctx context.Context, sale *entity.Sale, v commission.Verdict) {
	if v.Level == commission.LevelOK {
		return
	}
	s.logger.Info("Commission allocation warning", "sale_id", sale.ID, "level", string(v.Level), "message", v.Message)
	s.dispatch(ctx, event.NewEvent(event.TypeAllocationWarning, sale.ID, sale.Name, map[string]interface{}{
		event.KeyTotal:   v.Total.String(),
		event.KeyMessage: v.Message,
	}))
}

func (s *commissionServiceImpl) dispatch(ctx context.Context, evt *event.Event) {
	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, evt)
	}
}

func toDomain(in []BeneficiaryInput) ([]commission.Beneficiary, error) {
	out := make([]commission.Beneficiary, 0, len(in))
	for i, b := range in {
		role := commission.Role(b.Role)
		ct, err := commission.ParseCalcType(b.CalcType)
		if err != nil {
			return nil, &commission.BeneficiaryError{Index: i, Role: role, Err: err}
		}
		out = append(out, commission.Beneficiary{
			Role:         role,
			PartnerID:    b.PartnerID,
			PartnerName:  utils.SanitizeString(b.PartnerName),
			CalcType:     ct,
			RateOrAmount: b.RateOrAmount,
		})
	}
	return out, nil
}

func toRows(alloc commission.Allocation) []entity.SaleBeneficiary {
	rows := make([]entity.SaleBeneficiary, len(alloc.Lines))
	for i, l := range alloc.Lines {
		rows[i] = entity.SaleBeneficiary{
			Sequence:       i + 1,
			Role:           l.Role,
			PartnerID:      l.PartnerID,
			PartnerName:    l.PartnerName,
			CalcType:       l.CalcType,
			RateOrAmount:   l.RateOrAmount,
			ComputedAmount: l.Amount,
		}
	}
	return rows
}
