package commission

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownCalcType is returned when a calculation type is not one of the supported values
	ErrUnknownCalcType = errors.New("unknown commission calculation type")

	// ErrNegativeAmount is returned when a rate, fixed amount or base amount is negative
	ErrNegativeAmount = errors.New("commission amount must not be negative")

	// ErrRateOutOfRange is returned when a percentage rate exceeds 100
	ErrRateOutOfRange = errors.New("commission rate must be between 0 and 100")

	// ErrInvalidRole is returned when a beneficiary role is empty or malformed
	ErrInvalidRole = errors.New("invalid beneficiary role")

	// ErrOverAllocation is returned when allocated commission exceeds the untaxed sale total
	ErrOverAllocation = errors.New("commission over-allocation")

	// ErrMissingPartner is returned when a line with a positive amount has no partner to pay
	ErrMissingPartner = errors.New("commission line has no partner")

	// ErrUnknownValidationMode is returned for validation modes other than strict, warn and off
	ErrUnknownValidationMode = errors.New("unknown allocation validation mode")
)

// OverAllocationError carries the figures behind a rejected allocation.
type OverAllocationError struct {
	Total   decimal.Decimal
	Ceiling decimal.Decimal
	Excess  decimal.Decimal
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("%s: total allocated %s exceeds untaxed total %s by %s",
		ErrOverAllocation, e.Total.StringFixed(2), e.Ceiling.StringFixed(2), e.Excess.StringFixed(2))
}

func (e *OverAllocationError) Unwrap() error {
	return ErrOverAllocation
}

// BeneficiaryError reports which beneficiary row failed to resolve.
type BeneficiaryError struct {
	Index int
	Role  Role
	Err   error
}

func (e *BeneficiaryError) Error() string {
	return fmt.Sprintf("beneficiary %d (%s): %v", e.Index+1, e.Role, e.Err)
}

func (e *BeneficiaryError) Unwrap() error {
	return e.Err
}
