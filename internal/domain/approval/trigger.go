package approval

// Trigger represents an action that moves a record between states
type Trigger string

const (
	TriggerSubmit       Trigger = "submit"
	TriggerStartReview  Trigger = "start_review"
	TriggerApprove      Trigger = "approve"
	TriggerReject       Trigger = "reject"
	TriggerPost         Trigger = "post"
	TriggerCancel       Trigger = "cancel"
	TriggerResetToDraft Trigger = "reset_to_draft"

	// TriggerCreate only appears in the audit log for the initial entry
	TriggerCreate Trigger = "create"
)

// every target state is reached by exactly one trigger
var triggerByTarget = map[State]Trigger{
	StateSubmitted:   TriggerSubmit,
	StateUnderReview: TriggerStartReview,
	StateApproved:    TriggerApprove,
	StateRejected:    TriggerReject,
	StatePosted:      TriggerPost,
	StateCancelled:   TriggerCancel,
	StateDraft:       TriggerResetToDraft,
}

// TriggerFor returns the trigger that leads into target
func TriggerFor(target State) (Trigger, bool) {
	t, ok := triggerByTarget[target]
	return t, ok
}

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
