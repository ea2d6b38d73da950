package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundingMode selects how a resolved amount is brought to currency precision
type RoundingMode string

const (
	RoundHalfEven RoundingMode = "half_even"
	RoundHalfUp   RoundingMode = "half_up"
)

// DefaultPlaces is the precision of AED, the company currency
const DefaultPlaces int32 = 2

// Rounding is applied once to each resolved amount
type Rounding struct {
	Places int32
	Mode   RoundingMode
}

// DefaultRounding returns banker's rounding to 2 places
func DefaultRounding() Rounding {
	return Rounding{Places: DefaultPlaces, Mode: RoundHalfEven}
}

// ParseRoundingMode converts a configured value, defaulting to half_even when empty
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch RoundingMode(s) {
	case "":
		return RoundHalfEven, nil
	case RoundHalfEven, RoundHalfUp:
		return RoundingMode(s), nil
	}
	return "", fmt.Errorf("unknown rounding mode %q", s)
}

// Apply rounds d according to r
func (r Rounding) Apply(d decimal.Decimal) decimal.Decimal {
	if r.Mode == RoundHalfUp {
		return d.Round(r.Places)
	}
	return d.RoundBank(r.Places)
}
