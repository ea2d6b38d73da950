package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Mode controls how the ceiling check reacts to over-allocation
type Mode string

const (
	ModeStrict Mode = "strict"
	ModeWarn   Mode = "warn"
	ModeOff    Mode = "off"
)

// ParseMode converts a configured value, defaulting to strict when empty
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeStrict, nil
	case ModeStrict, ModeWarn, ModeOff:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownValidationMode, s)
}

// Level classifies a validation verdict
type Level string

const (
	LevelOK      Level = "ok"
	LevelWarning Level = "warning"
	LevelOver    Level = "over"
)

// ValidationPolicy is passed to Validate at call time
type ValidationPolicy struct {
	Mode Mode
	// WarnMarginPct raises a warning when the remaining margin drops below
	// this percentage of the untaxed total.
	WarnMarginPct decimal.Decimal
}

// DefaultValidationPolicy is strict with a 10% warning margin
func DefaultValidationPolicy() ValidationPolicy {
	return ValidationPolicy{Mode: ModeStrict, WarnMarginPct: decimal.NewFromInt(10)}
}

// Verdict describes how an allocation relates to its ceiling
type Verdict struct {
	Level          Level
	Total          decimal.Decimal
	Ceiling        decimal.Decimal
	Remaining      decimal.Decimal
	UtilizationPct decimal.Decimal
	Message        string
}

// Blocking reports whether the verdict must stop a save
func (v Verdict) Blocking(mode Mode) bool {
	return v.Level == LevelOver && mode == ModeStrict
}

// Validate checks the allocation total against the untaxed total of the sale.
// The untaxed total is the ceiling even for lines resolved against sale value.
func Validate(alloc Allocation, base Base, policy ValidationPolicy) (Verdict, error) {
	ceiling := base.UntaxedTotal
	v := Verdict{
		Level:          LevelOK,
		Total:          alloc.Total,
		Ceiling:        ceiling,
		Remaining:      ceiling.Sub(alloc.Total),
		UtilizationPct: decimal.Zero,
	}
	if ceiling.IsPositive() {
		v.UtilizationPct = alloc.Total.Mul(hundred).Div(ceiling).Round(2)
	}

	switch policy.Mode {
	case ModeOff:
		return v, nil
	case ModeStrict, ModeWarn:
	default:
		return v, fmt.Errorf("%w: %q", ErrUnknownValidationMode, policy.Mode)
	}

	if alloc.Total.GreaterThan(ceiling) {
		excess := alloc.Total.Sub(ceiling)
		v.Level = LevelOver
		v.Message = fmt.Sprintf("Total commission %s exceeds untaxed total %s by %s",
			alloc.Total.StringFixed(2), ceiling.StringFixed(2), excess.StringFixed(2))
		if policy.Mode == ModeStrict {
			return v, &OverAllocationError{Total: alloc.Total, Ceiling: ceiling, Excess: excess}
		}
		return v, nil
	}

	margin := ceiling.Mul(policy.WarnMarginPct).Div(hundred)
	if policy.WarnMarginPct.IsPositive() && v.Remaining.LessThan(margin) {
		v.Level = LevelWarning
		v.Message = fmt.Sprintf("Commission utilization at %s%%: only %s remaining of untaxed total %s",
			v.UtilizationPct.StringFixed(2), v.Remaining.StringFixed(2), ceiling.StringFixed(2))
	}

	return v, nil
}
