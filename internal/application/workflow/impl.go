package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/osusproperties/brokerage-core/internal/application/dispatcher"
	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/application/service"
	"github.com/osusproperties/brokerage-core/internal/domain/approval"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
	"github.com/osusproperties/brokerage-core/internal/domain/event"
)

// engineImpl is the concrete implementation of WorkflowEngine
type engineImpl struct {
	recordRepo port.ApprovalRecordRepository
	auditRepo  port.AuditRepository
	txManager  port.TransactionManager
	policies   service.PolicySource
	dispatcher dispatcher.Dispatcher
	logger     service.Logger
	now        func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLogger sets the engine logger
func WithLogger(l service.Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithClock overrides the time source used for stamps and audit entries
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	recordRepo port.ApprovalRecordRepository,
	auditRepo port.AuditRepository,
	txManager port.TransactionManager,
	policies service.PolicySource,
	opts ...EngineOption,
) WorkflowEngine {
	e := &engineImpl{
		recordRepo: recordRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		policies:   policies,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = nopLogger{}
	}

	return e
}

// Transition runs the state machine for one record inside a transaction.
// The policy is resolved before the transaction so a slow parameter source
// does not hold the database.
func (e *engineImpl) Transition(ctx context.Context, recordID int64, target approval.State, actor, reason string) (*entity.ApprovalRecord, error) {
	if !target.IsValid() {
		return nil, fmt.Errorf("%w: %s", approval.ErrInvalidState, target)
	}
	reason = strings.TrimSpace(reason)

	policy, err := e.policies.Policy(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve approval policy: %w", err)
	}

	var (
		record  *entity.ApprovalRecord
		from    approval.State
		trigger approval.Trigger
	)

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if record, err = e.load(txCtx, recordID); err != nil {
			return err
		}

		from = record.State
		machine := approval.NewMachine(from, policy, record.CreatedBy)
		if trigger, err = approval.Transition(txCtx, machine, target, actor); err != nil {
			return err
		}
		if trigger == approval.TriggerReject && reason == "" {
			return ErrReasonRequired
		}

		now := e.now()
		record.State = machine.State()
		record.Stamp(record.State, actor, now)

		if err := e.recordRepo.SaveTransition(txCtx, record, from); err != nil {
			return fmt.Errorf("save transition: %w", err)
		}

		entry := &entity.AuditEntry{
			RecordID:  recordID,
			Actor:     actor,
			FromState: from,
			ToState:   record.State,
			Trigger:   trigger,
			Reason:    reason,
			Timestamp: now,
		}
		if err := e.auditRepo.Append(txCtx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		e.logger.Error("Transition refused", "record_id", recordID, "target", target.String(), "actor", actor, "error", err)
		return nil, err
	}

	e.logger.Info("Record transitioned", "record_id", recordID, "from", from.String(), "to", record.State.String(), "actor", actor)

	if e.dispatcher != nil {
		payload := map[string]interface{}{
			event.KeyFromState: from.String(),
			event.KeyToState:   record.State.String(),
			event.KeyTrigger:   trigger.String(),
			event.KeyActor:     actor,
			event.KeyReason:    reason,
		}
		if record.State == approval.StateUnderReview {
			payload[event.KeyApprovers] = policy.Principals(approval.RoleApprover)
		}
		e.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeApprovalStatusChanged, recordID, record.Reference, payload))
	}

	return record, nil
}

// AvailableTargets checks each outgoing edge with the actor's authority
func (e *engineImpl) AvailableTargets(ctx context.Context, recordID int64, actor string) ([]approval.State, error) {
	record, err := e.load(ctx, recordID)
	if err != nil {
		return nil, err
	}
	policy, err := e.policies.Policy(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve approval policy: %w", err)
	}

	machine := approval.NewMachine(record.State, policy, record.CreatedBy)
	actorCtx := approval.WithActor(ctx, actor)

	var targets []approval.State
	for _, trigger := range machine.PermittedTriggers() {
		if to, ok := machine.Probe(actorCtx, trigger); ok {
			targets = append(targets, to)
		}
	}
	return targets, nil
}

func (e *engineImpl) load(ctx context.Context, recordID int64) (*entity.ApprovalRecord, error) {
	record, err := e.recordRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch record: %w", err)
	}
	if record == nil {
		return nil, service.ErrRecordNotFound
	}
	return record, nil
}

func (e *engineImpl) Submit(ctx context.Context, recordID int64, actor string) (*entity.ApprovalRecord, error) {
	return e.Transition(ctx, recordID, approval.StateSubmitted, actor, "")
}

func (e *engineImpl) StartReview(ctx context.Context, recordID int64, actor string) (*entity.ApprovalRecord, error) {
	return e.Transition(ctx, recordID, approval.StateUnderReview, actor, "")
}

// ApproveTransfer approves a record under review
func (e *engineImpl) ApproveTransfer(ctx context.Context, recordID int64, actor string) (*entity.ApprovalRecord, error) {
	return e.Transition(ctx, recordID, approval.StateApproved, actor, "")
}

// RejectTransfer rejects a submitted or under-review record; reason is mandatory
func (e *engineImpl) RejectTransfer(ctx context.Context, recordID int64, actor, reason string) (*entity.ApprovalRecord, error) {
	return e.Transition(ctx, recordID, approval.StateRejected, actor, reason)
}

func (e *engineImpl) Post(ctx context.Context, recordID int64, actor string) (*entity.ApprovalRecord, error) {
	return e.Transition(ctx, recordID, approval.StatePosted, actor, "")
}

func (e *engineImpl) Cancel(ctx context.Context, recordID int64, actor, reason string) (*entity.ApprovalRecord, error) {
	return e.Transition(ctx, recordID, approval.StateCancelled, actor, reason)
}

func (e *engineImpl) ResetToDraft(ctx context.Context, recordID int64, actor string) (*entity.ApprovalRecord, error) {
	return e.Transition(ctx, recordID, approval.StateDraft, actor, "")
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
