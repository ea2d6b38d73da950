package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/osusproperties/brokerage-core/internal/domain/commission"
)

// CommissionPurchaseOrder is the payable created for one partner when a sale is confirmed
type CommissionPurchaseOrder struct {
	ID           int64              `json:"id"`
	SaleID       int64              `json:"sale_id"`
	PartnerID    int64              `json:"partner_id"`
	PartnerName  string             `json:"partner_name"`
	Reference    string             `json:"reference"`
	State        string             `json:"state"`
	Total        decimal.Decimal    `json:"total"`
	Currency     string             `json:"currency"`
	ExportStatus string             `json:"export_status"`
	OdooID       *int64             `json:"odoo_id,omitempty"`
	ExportError  string             `json:"export_error,omitempty"`
	ExportedAt   *time.Time         `json:"exported_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Lines        []CommissionPOLine `json:"lines,omitempty"`
}

// CommissionPOLine carries one beneficiary role on a purchase order
type CommissionPOLine struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	Role        commission.Role `json:"role"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}
