package service

import "errors"

var (
	ErrSaleNotFound   = errors.New("sale not found")
	ErrSaleLocked     = errors.New("sale beneficiaries can only change in draft")
	ErrSaleState      = errors.New("operation not allowed in the current sale state")
	ErrInvalidSale    = errors.New("invalid sale")
	ErrRecordNotFound = errors.New("approval record not found")
	ErrInvalidRecord  = errors.New("invalid approval record")
	ErrLeadNotFound   = errors.New("lead not found")
	ErrInvalidLead    = errors.New("invalid lead")

	// ErrScoringDisabled is returned by lead scoring when no scorer is configured
	ErrScoringDisabled = errors.New("lead scoring is not configured")

	// ErrNoApproversConfigured is returned when neither approver parameter holds a value
	ErrNoApproversConfigured = errors.New("no approvers configured")
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func orNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
