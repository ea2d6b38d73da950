package approval

// State is a step in the payment / vendor bill approval lifecycle
type State string

const (
	StateDraft       State = "draft"
	StateSubmitted   State = "submitted"
	StateUnderReview State = "under_review"
	StateApproved    State = "approved"
	StatePosted      State = "posted"
	StateRejected    State = "rejected"
	StateCancelled   State = "cancelled"
)

var validStates = map[State]bool{
	StateDraft:       true,
	StateSubmitted:   true,
	StateUnderReview: true,
	StateApproved:    true,
	StatePosted:      true,
	StateRejected:    true,
	StateCancelled:   true,
}

var terminalStates = map[State]bool{
	StatePosted:    true,
	StateCancelled: true,
}

// AllStates returns every state in lifecycle order
func AllStates() []State {
	return []State{StateDraft, StateSubmitted, StateUnderReview, StateApproved, StatePosted, StateRejected, StateCancelled}
}

// IsTerminal returns true if no further transitions are allowed
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known approval state
func (s State) IsValid() bool {
	return validStates[s]
}
