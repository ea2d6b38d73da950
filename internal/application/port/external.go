package port

import (
	"context"

	"github.com/osusproperties/brokerage-core/internal/domain/commission"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
)

// ParamReader reads key-value configuration parameters (ir.config_parameter)
type ParamReader interface {
	// GetParam returns the value and whether the key exists
	GetParam(ctx context.Context, key string) (string, bool, error)
}

// PurchaseOrderExporter pushes a commission purchase order to the ERP
type PurchaseOrderExporter interface {
	// ExportPurchaseOrder returns the ID assigned by the ERP
	ExportPurchaseOrder(ctx context.Context, po *entity.CommissionPurchaseOrder) (int64, error)
}

// LeadScorer rates a lead from 0 to 100
type LeadScorer interface {
	ScoreLead(ctx context.Context, lead *entity.Lead) (*entity.LeadScore, error)
}

// ApproverNotifier tells approvers that a record awaits their decision
type ApproverNotifier interface {
	NotifyApprovers(ctx context.Context, record *entity.ApprovalRecord, approvers []string) error
}

// SaleStatement is everything rendered on a commission statement
type SaleStatement struct {
	Sale       *entity.Sale
	Allocation commission.Allocation
	Verdict    commission.Verdict
	Orders     []*entity.CommissionPurchaseOrder
}

// ReportRenderer renders commission reports as spreadsheets
type ReportRenderer interface {
	RenderStatement(stmt *SaleStatement) ([]byte, error)
	RenderSummary(stmts []*SaleStatement) ([]byte, error)
}
