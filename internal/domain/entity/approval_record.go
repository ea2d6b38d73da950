package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/osusproperties/brokerage-core/internal/domain/approval"
)

// ApprovalRecord is a payment or vendor bill moving through the approval lifecycle
type ApprovalRecord struct {
	ID          int64           `json:"id"`
	Kind        string          `json:"kind"`
	Reference   string          `json:"reference"`
	PartnerName string          `json:"partner_name"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	State       approval.State  `json:"state"`
	CreatedBy   string          `json:"created_by"`
	ReviewerID  string          `json:"reviewer_id,omitempty"`
	ReviewedAt  *time.Time      `json:"reviewed_at,omitempty"`
	ApproverID  string          `json:"approver_id,omitempty"`
	ApprovedAt  *time.Time      `json:"approved_at,omitempty"`
	PosterID    string          `json:"poster_id,omitempty"`
	PostedAt    *time.Time      `json:"posted_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Stamp records who performed a review, approval or posting step
func (r *ApprovalRecord) Stamp(to approval.State, actor string, at time.Time) {
	switch to {
	case approval.StateUnderReview:
		r.ReviewerID, r.ReviewedAt = actor, &at
	case approval.StateApproved:
		r.ApproverID, r.ApprovedAt = actor, &at
	case approval.StatePosted:
		r.PosterID, r.PostedAt = actor, &at
	}
}
