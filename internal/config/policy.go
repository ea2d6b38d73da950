package config

import (
	"github.com/shopspring/decimal"

	"github.com/osusproperties/brokerage-core/internal/domain/approval"
	"github.com/osusproperties/brokerage-core/internal/domain/commission"
)

// Rounding converts the commission section into the calculator's rounding rule.
// Validate has already rejected unknown modes.
func (c CommissionConfig) Rounding() commission.Rounding {
	mode, err := commission.ParseRoundingMode(c.RoundingMode)
	if err != nil {
		mode = commission.RoundHalfEven
	}
	return commission.Rounding{Places: c.RoundingPlaces, Mode: mode}
}

// ValidationPolicy converts the commission section into the validator policy
func (c CommissionConfig) ValidationPolicy() commission.ValidationPolicy {
	mode, err := commission.ParseMode(c.ValidationMode)
	if err != nil {
		mode = commission.ModeStrict
	}
	return commission.ValidationPolicy{
		Mode:          mode,
		WarnMarginPct: decimal.NewFromFloat(c.WarnMarginPct),
	}
}

// StaticGrants returns the role grants listed in the approval section
func (a ApprovalConfig) StaticGrants() map[approval.Role][]string {
	return map[approval.Role][]string{
		approval.RoleAuthor:   a.Authors,
		approval.RoleReviewer: a.Reviewers,
		approval.RoleApprover: a.Approvers,
		approval.RolePoster:   a.Posters,
	}
}
