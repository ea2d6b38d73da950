package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/osusproperties/brokerage-core/internal/domain/commission"
)

// Sale is a property sale transaction that carries commission beneficiaries
type Sale struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	BuyerName     string            `json:"buyer_name"`
	Project       string            `json:"project"`
	Unit          string            `json:"unit"`
	SaleValue     decimal.Decimal   `json:"sale_value"`
	AmountUntaxed decimal.Decimal   `json:"amount_untaxed"`
	Currency      string            `json:"currency"`
	State         string            `json:"state"`
	CreatedBy     string            `json:"created_by"`
	ConfirmedAt   *time.Time        `json:"confirmed_at,omitempty"`
	CancelledAt   *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Beneficiaries []SaleBeneficiary `json:"beneficiaries,omitempty"`
}

// Base returns the amounts commission is computed against
func (s *Sale) Base() commission.Base {
	return commission.Base{SaleValue: s.SaleValue, UntaxedTotal: s.AmountUntaxed}
}

// IsEditable reports whether beneficiaries may still change
func (s *Sale) IsEditable() bool {
	return s.State == SaleStateDraft
}

// SaleBeneficiary is a persisted commission slot of a sale
type SaleBeneficiary struct {
	ID             int64               `json:"id"`
	SaleID         int64               `json:"sale_id"`
	Sequence       int                 `json:"sequence"`
	Role           commission.Role     `json:"role"`
	PartnerID      int64               `json:"partner_id"`
	PartnerName    string              `json:"partner_name"`
	CalcType       commission.CalcType `json:"calc_type"`
	RateOrAmount   decimal.Decimal     `json:"rate_or_amount"`
	ComputedAmount decimal.Decimal     `json:"computed_amount"`
}

// Domain converts the row into a calculator input
func (b SaleBeneficiary) Domain() commission.Beneficiary {
	return commission.Beneficiary{
		Role:         b.Role,
		PartnerID:    b.PartnerID,
		PartnerName:  b.PartnerName,
		CalcType:     b.CalcType,
		RateOrAmount: b.RateOrAmount,
	}
}

// DomainBeneficiaries converts all rows of the sale into calculator inputs
func (s *Sale) DomainBeneficiaries() []commission.Beneficiary {
	out := make([]commission.Beneficiary, len(s.Beneficiaries))
	for i, b := range s.Beneficiaries {
		out[i] = b.Domain()
	}
	return out
}
