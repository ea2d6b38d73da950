package commission

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Resolve computes the commission amount for a single beneficiary.
//
//   - fixed: rateOrAmount unchanged
//   - pct_sale_value: rateOrAmount/100 * saleValue
//   - pct_untaxed: rateOrAmount/100 * untaxedTotal
//
// The result is rounded once with r.
func Resolve(calc CalcType, rateOrAmount, saleValue, untaxedTotal decimal.Decimal, r Rounding) (decimal.Decimal, error) {
	if rateOrAmount.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}

	var amount decimal.Decimal
	switch calc {
	case CalcFixed:
		amount = rateOrAmount
	case CalcPctSaleValue, CalcPctUntaxed:
		if rateOrAmount.GreaterThan(hundred) {
			return decimal.Zero, ErrRateOutOfRange
		}
		base := saleValue
		if calc == CalcPctUntaxed {
			base = untaxedTotal
		}
		if base.IsNegative() {
			return decimal.Zero, ErrNegativeAmount
		}
		amount = rateOrAmount.Mul(base).Div(hundred)
	default:
		return decimal.Zero, ErrUnknownCalcType
	}

	return r.Apply(amount), nil
}
