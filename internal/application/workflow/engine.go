package workflow

import (
	"context"
	"errors"

	"github.com/osusproperties/brokerage-core/internal/domain/approval"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
)

// ErrReasonRequired is returned when a rejection carries no reason
var ErrReasonRequired = errors.New("a reason is required to reject")

// WorkflowEngine moves approval records through their lifecycle
type WorkflowEngine interface {
	// Transition moves the record to target on behalf of actor. Refused
	// transitions return a *approval.TransitionError and change nothing.
	Transition(ctx context.Context, recordID int64, target approval.State, actor, reason string) (*entity.ApprovalRecord, error)

	// AvailableTargets lists the states actor may move the record to now
	AvailableTargets(ctx context.Context, recordID int64, actor string) ([]approval.State, error)

	Submit(ctx context.Context, recordID int64, actor string) (*entity.ApprovalRecord, error)
	StartReview(ctx context.Context, recordID int64, actor string) (*entity.ApprovalRecord, error)
	ApproveTransfer(ctx context.Context, recordID int64, actor string) (*entity.ApprovalRecord, error)
	RejectTransfer(ctx context.Context, recordID int64, actor, reason string) (*entity.ApprovalRecord, error)
	Post(ctx context.Context, recordID int64, actor string) (*entity.ApprovalRecord, error)
	Cancel(ctx context.Context, recordID int64, actor, reason string) (*entity.ApprovalRecord, error)
	ResetToDraft(ctx context.Context, recordID int64, actor string) (*entity.ApprovalRecord, error)
}
