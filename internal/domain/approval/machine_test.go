package approval

import (
	"context"
	"errors"
	"testing"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateDraft, false},
		{StateSubmitted, false},
		{StateUnderReview, false},
		{StateApproved, false},
		{StateRejected, false},
		{StatePosted, true},
		{StateCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	for _, s := range AllStates() {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if State("paid").IsValid() {
		t.Error("unknown state reported valid")
	}
	if State("").IsValid() {
		t.Error("empty state reported valid")
	}
}

func TestTriggerFor(t *testing.T) {
	tests := []struct {
		target State
		want   Trigger
	}{
		{StateSubmitted, TriggerSubmit},
		{StateUnderReview, TriggerStartReview},
		{StateApproved, TriggerApprove},
		{StateRejected, TriggerReject},
		{StatePosted, TriggerPost},
		{StateCancelled, TriggerCancel},
		{StateDraft, TriggerResetToDraft},
	}

	for _, tt := range tests {
		got, ok := TriggerFor(tt.target)
		if !ok || got != tt.want {
			t.Errorf("TriggerFor(%s) = %v, %v; want %v", tt.target, got, ok, tt.want)
		}
	}

	if _, ok := TriggerFor(State("paid")); ok {
		t.Error("TriggerFor should not resolve unknown states")
	}
}

func TestBuilder_Configure(t *testing.T) {
	builder := NewBuilder()

	config := builder.Configure(StateDraft)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	if config2 := builder.Configure(StateDraft); config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	NewBuilder().Configure(State("INVALID"))
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	NewBuilder().Build(State("INVALID"))
}

func TestStateConfiguration_PermitPanicsOnInvalidState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic on invalid target state")
		}
	}()

	NewBuilder().Configure(StateDraft).Permit(TriggerSubmit, State("INVALID"))
}

func TestStateConfiguration_PermitIf_GuardFails(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).
		PermitIf(TriggerSubmit, StateSubmitted, func(ctx context.Context) bool {
			return false
		})

	machine := builder.Build(StateDraft)

	err := machine.Fire(context.Background(), TriggerSubmit)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}
	if machine.State() != StateDraft {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateDraft, machine.State())
	}
}

func TestStateConfiguration_PermitIf_FallsThroughGuards(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateSubmitted).
		PermitIf(TriggerReject, StateCancelled, func(ctx context.Context) bool {
			return ActorFromContext(ctx) == "admin"
		}).
		Permit(TriggerReject, StateRejected)

	m1 := builder.Build(StateSubmitted)
	if err := m1.Fire(WithActor(context.Background(), "admin"), TriggerReject); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if m1.State() != StateCancelled {
		t.Errorf("State = %v, want %v", m1.State(), StateCancelled)
	}

	m2 := builder.Build(StateSubmitted)
	if err := m2.Fire(WithActor(context.Background(), "clerk"), TriggerReject); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if m2.State() != StateRejected {
		t.Errorf("State = %v, want %v", m2.State(), StateRejected)
	}
}

func TestStateMachine_Fire_NoConfiguration(t *testing.T) {
	machine := NewBuilder().Build(StateDraft)

	err := machine.Fire(context.Background(), TriggerSubmit)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestStateMachine_Immutability(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).Permit(TriggerSubmit, StateSubmitted)

	machine1 := builder.Build(StateDraft)
	machine2 := builder.Build(StateDraft)

	// configuring after Build must not affect built machines
	builder.Configure(StateDraft).Permit(TriggerCancel, StateCancelled)

	if err := machine1.Fire(context.Background(), TriggerSubmit); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if machine2.State() != StateDraft {
		t.Errorf("machine2 state = %v, want %v", machine2.State(), StateDraft)
	}
	if machine2.CanFire(TriggerCancel) {
		t.Error("machine2 picked up a transition configured after Build")
	}
}

func TestStateMachine_PermittedTriggersAndDestinations(t *testing.T) {
	machine := NewMachine(StateUnderReview, NewPolicy(nil), "u1")

	triggers := machine.PermittedTriggers()
	want := []Trigger{TriggerApprove, TriggerCancel, TriggerReject}
	if len(triggers) != len(want) {
		t.Fatalf("PermittedTriggers() = %v, want %v", triggers, want)
	}
	for i := range want {
		if triggers[i] != want[i] {
			t.Errorf("PermittedTriggers()[%d] = %v, want %v", i, triggers[i], want[i])
		}
	}

	dest := machine.Destinations()
	if len(dest) != 3 {
		t.Errorf("Destinations() = %v, want 3 states", dest)
	}

	if got := NewMachine(StatePosted, NewPolicy(nil), "u1").PermittedTriggers(); len(got) != 0 {
		t.Errorf("posted should have no triggers, got %v", got)
	}
}
