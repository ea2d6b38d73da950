package approval

import (
	"context"
	"errors"
)

type actorKey struct{}

// WithActor stores the acting user ID in ctx for transition guards
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the acting user ID, or "" if none is set
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// requireRole builds a guard that passes when the actor holds one of roles.
// The record's author always holds RoleAuthor on that record.
func requireRole(policy *Policy, author string, trigger Trigger) GuardFunc {
	roles := requiredRoles[trigger]
	return func(ctx context.Context) bool {
		actor := ActorFromContext(ctx)
		if actor == "" {
			return false
		}
		for _, role := range roles {
			if role == RoleAuthor && actor == author {
				return true
			}
			if policy.Allows(role, actor) {
				return true
			}
		}
		return false
	}
}

// NewMachine builds the approval lifecycle for one record:
//
//	draft        -> submitted, cancelled
//	submitted    -> under_review, rejected, cancelled
//	under_review -> approved, rejected, cancelled
//	approved     -> posted, cancelled
//	rejected     -> draft, cancelled
//
// posted and cancelled are terminal. Every edge is guarded by policy.
func NewMachine(initial State, policy *Policy, author string) StateMachine {
	b := NewBuilder()
	guard := func(t Trigger) GuardFunc { return requireRole(policy, author, t) }

	b.Configure(StateDraft).
		PermitIf(TriggerSubmit, StateSubmitted, guard(TriggerSubmit)).
		PermitIf(TriggerCancel, StateCancelled, guard(TriggerCancel))

	b.Configure(StateSubmitted).
		PermitIf(TriggerStartReview, StateUnderReview, guard(TriggerStartReview)).
		PermitIf(TriggerReject, StateRejected, guard(TriggerReject)).
		PermitIf(TriggerCancel, StateCancelled, guard(TriggerCancel))

	b.Configure(StateUnderReview).
		PermitIf(TriggerApprove, StateApproved, guard(TriggerApprove)).
		PermitIf(TriggerReject, StateRejected, guard(TriggerReject)).
		PermitIf(TriggerCancel, StateCancelled, guard(TriggerCancel))

	b.Configure(StateApproved).
		PermitIf(TriggerPost, StatePosted, guard(TriggerPost)).
		PermitIf(TriggerCancel, StateCancelled, guard(TriggerCancel))

	b.Configure(StateRejected).
		PermitIf(TriggerResetToDraft, StateDraft, guard(TriggerResetToDraft)).
		PermitIf(TriggerCancel, StateCancelled, guard(TriggerCancel))

	b.Configure(StatePosted)
	b.Configure(StateCancelled)

	return b.Build(initial)
}

// Transition moves m to target on behalf of actor. It never succeeds
// silently: a no-op, a missing edge or a refused guard each return a
// *TransitionError and leave m untouched.
func Transition(ctx context.Context, m StateMachine, target State, actor string) (Trigger, error) {
	from := m.State()
	fail := func(kind ErrorKind) error {
		return &TransitionError{Kind: kind, From: from, To: target, Actor: actor}
	}

	if target == from {
		return "", fail(KindAlreadyInState)
	}

	trigger, ok := TriggerFor(target)
	if !ok || !m.CanFire(trigger) {
		return "", fail(KindIllegalTransition)
	}

	if err := m.Fire(WithActor(ctx, actor), trigger); err != nil {
		if errors.Is(err, ErrGuardFailed) {
			return "", fail(KindNotAuthorized)
		}
		return "", fail(KindIllegalTransition)
	}

	return trigger, nil
}
