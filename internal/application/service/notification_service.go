package service

import (
	"context"
	"fmt"

	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/domain/approval"
	"github.com/osusproperties/brokerage-core/internal/domain/event"
)

// NotificationService reacts to domain events with outbound notifications
type NotificationService interface {
	// HandleApprovalStatusChanged notifies the approvers carried on the event
	// when a record enters under_review. Other transitions are ignored.
	HandleApprovalStatusChanged(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	recordRepo port.ApprovalRecordRepository
	notifier   port.ApproverNotifier
	logger     Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(recordRepo port.ApprovalRecordRepository, notifier port.ApproverNotifier, logger Logger) NotificationService {
	return &notificationServiceImpl{
		recordRepo: recordRepo,
		notifier:   notifier,
		logger:     orNop(logger),
	}
}

func (s *notificationServiceImpl) HandleApprovalStatusChanged(ctx context.Context, evt *event.Event) error {
	if approval.State(evt.GetPayloadString(event.KeyToState)) != approval.StateUnderReview {
		return nil
	}

	approvers := evt.GetPayloadStrings(event.KeyApprovers)
	if len(approvers) == 0 {
		s.logger.Info("No approvers to notify", "record_id", evt.RecordID, "reference", evt.Reference)
		return nil
	}

	record, err := s.recordRepo.GetByID(ctx, evt.RecordID)
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}
	if record == nil {
		return ErrRecordNotFound
	}

	if err := s.notifier.NotifyApprovers(ctx, record, approvers); err != nil {
		s.logger.Error("Failed to notify approvers", "error", err, "record_id", record.ID, "approvers", approvers)
		return fmt.Errorf("notify approvers: %w", err)
	}

	s.logger.Info("Approvers notified", "record_id", record.ID, "reference", record.Reference, "count", len(approvers))
	return nil
}
