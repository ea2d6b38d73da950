package commission

import "github.com/shopspring/decimal"

// Beneficiary is one commission slot on a sale
type Beneficiary struct {
	Role         Role
	PartnerID    int64
	PartnerName  string
	CalcType     CalcType
	RateOrAmount decimal.Decimal
}

// Base holds the two candidate base amounts of a sale
type Base struct {
	SaleValue    decimal.Decimal
	UntaxedTotal decimal.Decimal
}

// Line is a beneficiary together with its resolved amount
type Line struct {
	Beneficiary
	Amount decimal.Decimal
}

// Allocation is the result of aggregating all beneficiaries of a sale
type Allocation struct {
	Lines []Line
	Total decimal.Decimal
}

// PartnerTotal is the commission owed to one partner across all of its roles
type PartnerTotal struct {
	PartnerID   int64
	PartnerName string
	Total       decimal.Decimal
	Lines       []Line
}

// Aggregate resolves every beneficiary and sums the results. The input slice
// is not modified; the first failing beneficiary aborts the aggregation.
func Aggregate(beneficiaries []Beneficiary, base Base, r Rounding) (Allocation, error) {
	alloc := Allocation{
		Lines: make([]Line, 0, len(beneficiaries)),
		Total: decimal.Zero,
	}

	for i, b := range beneficiaries {
		if !b.Role.IsValid() {
			return Allocation{}, &BeneficiaryError{Index: i, Role: b.Role, Err: ErrInvalidRole}
		}
		amount, err := Resolve(b.CalcType, b.RateOrAmount, base.SaleValue, base.UntaxedTotal, r)
		if err != nil {
			return Allocation{}, &BeneficiaryError{Index: i, Role: b.Role, Err: err}
		}
		alloc.Lines = append(alloc.Lines, Line{Beneficiary: b, Amount: amount})
		alloc.Total = alloc.Total.Add(amount)
	}

	return alloc, nil
}

// RequirePartners fails on the first line that pays a positive amount to
// nobody. Such a line would count toward the total without any purchase order.
func (a Allocation) RequirePartners() error {
	for i, l := range a.Lines {
		if l.PartnerID == 0 && l.Amount.IsPositive() {
			return &BeneficiaryError{Index: i, Role: l.Role, Err: ErrMissingPartner}
		}
	}
	return nil
}

// ByPartner groups line amounts per distinct partner in order of first
// appearance. Lines without a partner are skipped.
func (a Allocation) ByPartner() []PartnerTotal {
	index := make(map[int64]int)
	var out []PartnerTotal

	for _, l := range a.Lines {
		if l.PartnerID == 0 {
			continue
		}
		i, ok := index[l.PartnerID]
		if !ok {
			i = len(out)
			index[l.PartnerID] = i
			out = append(out, PartnerTotal{
				PartnerID:   l.PartnerID,
				PartnerName: l.PartnerName,
				Total:       decimal.Zero,
			})
		}
		out[i].Total = out[i].Total.Add(l.Amount)
		out[i].Lines = append(out[i].Lines, l)
	}

	return out
}
