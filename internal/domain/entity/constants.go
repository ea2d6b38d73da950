package entity

// Sale states
const (
	SaleStateDraft     = "draft"
	SaleStateConfirmed = "confirmed"
	SaleStateCancelled = "cancelled"
)

// Commission purchase order states
const (
	POStateDraft     = "draft"
	POStateCancelled = "cancelled"
)

// Export status of a commission purchase order towards Odoo
const (
	ExportStatusPending  = "pending"
	ExportStatusExported = "exported"
	ExportStatusFailed   = "failed"
	ExportStatusSkipped  = "skipped"
	// ExportStatusNeedsReversal marks exported orders of a cancelled sale
	ExportStatusNeedsReversal = "needs_reversal"
)

// Approval record kinds
const (
	RecordKindPayment    = "payment"
	RecordKindVendorBill = "vendor_bill"
)

// Default currency of the brokerage
const DefaultCurrency = "AED"
