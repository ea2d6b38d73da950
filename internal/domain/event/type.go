package event

// Type identifies the type of domain event
type Type string

const (
	TypeSaleConfirmed         Type = "sale.confirmed"
	TypeSaleCancelled         Type = "sale.cancelled"
	TypeAllocationWarning     Type = "allocation.warning"
	TypeApprovalStatusChanged Type = "approval.status_changed"
	TypeLeadScored            Type = "lead.scored"
)

// Payload keys shared by producers and handlers
const (
	KeyFromState  = "from_state"
	KeyToState    = "to_state"
	KeyActor      = "actor"
	KeyReason     = "reason"
	KeyTrigger    = "trigger"
	KeyTotal      = "total"
	KeyMessage    = "message"
	KeyOrderCount = "order_count"
	KeyApprovers  = "approvers"
	KeyScore      = "score"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeSaleConfirmed,
		TypeSaleCancelled,
		TypeAllocationWarning,
		TypeApprovalStatusChanged,
		TypeLeadScored:
		return true
	default:
		return false
	}
}
