package port

import (
	"context"
	"errors"
	"time"

	"github.com/osusproperties/brokerage-core/internal/domain/approval"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
)

// ErrStaleRecord is returned when a conditional update finds the row in a different state
var ErrStaleRecord = errors.New("record was modified concurrently")

// SaleRepository defines persistence operations for Sale and its beneficiaries
type SaleRepository interface {
	Create(ctx context.Context, sale *entity.Sale) error
	// GetByID loads the sale with its beneficiaries ordered by sequence; nil if missing
	GetByID(ctx context.Context, id int64) (*entity.Sale, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Sale, error)
	ListByState(ctx context.Context, state string) ([]*entity.Sale, error)
	// UpdateState moves the sale from one state to another; ErrStaleRecord if it was not in from
	UpdateState(ctx context.Context, id int64, from, to string, at time.Time) error
	ReplaceBeneficiaries(ctx context.Context, saleID int64, rows []entity.SaleBeneficiary) error
}

// PurchaseOrderRepository defines persistence operations for commission purchase orders
type PurchaseOrderRepository interface {
	// Create stores the order and its lines
	Create(ctx context.Context, po *entity.CommissionPurchaseOrder) error
	GetByID(ctx context.Context, id int64) (*entity.CommissionPurchaseOrder, error)
	GetBySaleID(ctx context.Context, saleID int64) ([]*entity.CommissionPurchaseOrder, error)
	ListByExportStatus(ctx context.Context, status string, limit int) ([]*entity.CommissionPurchaseOrder, error)
	UpdateState(ctx context.Context, id int64, state string) error
	UpdateExportStatus(ctx context.Context, id int64, status, errMsg string) error
	MarkExported(ctx context.Context, id int64, odooID int64, at time.Time) error
}

// ApprovalRecordRepository defines persistence operations for ApprovalRecord
type ApprovalRecordRepository interface {
	Create(ctx context.Context, record *entity.ApprovalRecord) error
	GetByID(ctx context.Context, id int64) (*entity.ApprovalRecord, error)
	List(ctx context.Context, state approval.State, limit, offset int) ([]*entity.ApprovalRecord, error)
	// SaveTransition persists state and actor stamps if the stored state still equals from
	SaveTransition(ctx context.Context, record *entity.ApprovalRecord, from approval.State) error
}

// AuditRepository is append-only
type AuditRepository interface {
	Append(ctx context.Context, entry *entity.AuditEntry) error
	ListByRecordID(ctx context.Context, recordID int64) ([]*entity.AuditEntry, error)
}

// ParamRepository defines persistence operations for SystemParam
type ParamRepository interface {
	Get(ctx context.Context, key string) (*entity.SystemParam, error)
	Set(ctx context.Context, key, value, description string) error
	List(ctx context.Context) ([]*entity.SystemParam, error)
}

// LeadRepository defines persistence operations for Lead
type LeadRepository interface {
	Create(ctx context.Context, lead *entity.Lead) error
	GetByID(ctx context.Context, id int64) (*entity.Lead, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Lead, error)
	ListUnscored(ctx context.Context, limit int) ([]*entity.Lead, error)
	UpdateScore(ctx context.Context, id int64, score int, reasoning string, at time.Time) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
