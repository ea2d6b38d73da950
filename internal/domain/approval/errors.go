package approval

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned by the machine when a trigger is not configured for the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when every guarded transition for a trigger refuses
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrNotAuthorized is returned when the actor lacks the role a transition requires
	ErrNotAuthorized = errors.New("not authorized")

	// ErrIllegalTransition is returned when the lifecycle has no edge to the target state
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrAlreadyInState is returned when the record is already in the target state
	ErrAlreadyInState = errors.New("already in state")
)

// ErrorKind classifies a rejected transition
type ErrorKind string

const (
	KindNotAuthorized     ErrorKind = "NotAuthorized"
	KindIllegalTransition ErrorKind = "IllegalTransition"
	KindAlreadyInState    ErrorKind = "AlreadyInState"
)

var kindSentinels = map[ErrorKind]error{
	KindNotAuthorized:     ErrNotAuthorized,
	KindIllegalTransition: ErrIllegalTransition,
	KindAlreadyInState:    ErrAlreadyInState,
}

// TransitionError is returned for every transition that did not happen.
type TransitionError struct {
	Kind  ErrorKind
	From  State
	To    State
	Actor string
}

func (e *TransitionError) Error() string {
	switch e.Kind {
	case KindAlreadyInState:
		return fmt.Sprintf("record is already %s", e.To)
	case KindNotAuthorized:
		return fmt.Sprintf("user %q is not authorized to move record from %s to %s", e.Actor, e.From, e.To)
	default:
		return fmt.Sprintf("cannot move record from %s to %s", e.From, e.To)
	}
}

func (e *TransitionError) Unwrap() error {
	return kindSentinels[e.Kind]
}

// KindOf extracts the ErrorKind from err, if it is a transition error
func KindOf(err error) (ErrorKind, bool) {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}
