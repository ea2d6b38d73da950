package commission

import "strings"

// CalcType determines which base amount a beneficiary rate is applied to
type CalcType string

const (
	CalcFixed        CalcType = "fixed"
	CalcPctSaleValue CalcType = "pct_sale_value"
	CalcPctUntaxed   CalcType = "pct_untaxed"
)

// legacy selection values used by the Odoo commission modules
var calcTypeAliases = map[string]CalcType{
	"fixed":                 CalcFixed,
	"pct_sale_value":        CalcPctSaleValue,
	"pct_untaxed":           CalcPctUntaxed,
	"percent_unit_price":    CalcPctSaleValue,
	"percentage_sale_value": CalcPctSaleValue,
	"percent_untaxed_total": CalcPctUntaxed,
	"percentage_untaxed":    CalcPctUntaxed,
}

// ParseCalcType accepts canonical and legacy names
func ParseCalcType(s string) (CalcType, error) {
	ct, ok := calcTypeAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", ErrUnknownCalcType
	}
	return ct, nil
}

// IsValid returns true for the three canonical calculation types
func (c CalcType) IsValid() bool {
	switch c {
	case CalcFixed, CalcPctSaleValue, CalcPctUntaxed:
		return true
	}
	return false
}

// IsPercentage reports whether the rate is a percentage of a base amount
func (c CalcType) IsPercentage() bool {
	return c == CalcPctSaleValue || c == CalcPctUntaxed
}

func (c CalcType) String() string {
	return string(c)
}
