package approval

import "context"

// StateMachine tracks the current state of one record and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is configured for the current state
	CanFire(trigger Trigger) bool

	// Fire runs the first transition for trigger whose guard passes
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns the configured triggers of the current state in a stable order
	PermittedTriggers() []Trigger

	// Destinations returns the target states reachable from the current state
	Destinations() []State

	// Probe reports where trigger would lead without firing it; guards are evaluated
	Probe(ctx context.Context, trigger Trigger) (State, bool)
}
