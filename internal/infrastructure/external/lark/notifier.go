// Package lark notifies approvers over Lark instant messaging.
package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
)

// ReceiveIDTypeOpenID addresses messages by Lark open_id
const ReceiveIDTypeOpenID = "open_id"

const msgTypeText = "text"

// Notifier implements port.ApproverNotifier with im.v1 text messages
type Notifier struct {
	sdk           *SDKClient
	receiveIDType string
	// recipients maps approver principal IDs to Lark receive IDs
	recipients map[string]string
	logger     *zap.Logger
}

// NewNotifier creates a notifier. Principals missing from recipients are
// addressed with their own ID.
func NewNotifier(sdk *SDKClient, receiveIDType string, recipients map[string]string, logger *zap.Logger) *Notifier {
	if receiveIDType == "" {
		receiveIDType = ReceiveIDTypeOpenID
	}
	return &Notifier{
		sdk:           sdk,
		receiveIDType: receiveIDType,
		recipients:    recipients,
		logger:        logger,
	}
}

// NotifyApprovers sends one message per approver. Every approver is tried;
// failures are joined into the returned error.
func (n *Notifier) NotifyApprovers(ctx context.Context, record *entity.ApprovalRecord, approvers []string) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}
	if len(approvers) == 0 {
		return nil
	}

	content, err := textContent(approvalMessage(record))
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range approvers {
		receiveID := id
		if mapped, ok := n.recipients[id]; ok && mapped != "" {
			receiveID = mapped
		}
		if _, err := n.send(ctx, receiveID, content); err != nil {
			errs = append(errs, fmt.Errorf("approver %s: %w", id, err))
			continue
		}
	}

	n.logger.Info("Approvers notified",
		zap.Int64("record_id", record.ID),
		zap.String("reference", record.Reference),
		zap.Int("recipients", len(approvers)),
		zap.Int("failed", len(errs)))

	return errors.Join(errs...)
}

func (n *Notifier) send(ctx context.Context, receiveID, content string) (string, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(n.receiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(msgTypeText).
			Content(content).
			Build()).
		Build()

	resp, err := n.sdk.GetClient().Im.Message.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send message",
			zap.String("receive_id", receiveID),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		n.logger.Error("API returned failure",
			zap.String("receive_id", receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	return messageID, nil
}

func approvalMessage(r *entity.ApprovalRecord) string {
	msg := fmt.Sprintf("%s %s is awaiting your approval: %s %s",
		r.Kind, r.Reference, r.Amount.StringFixed(2), r.Currency)
	if r.PartnerName != "" {
		msg += " for " + r.PartnerName
	}
	if r.ReviewerID != "" {
		msg += fmt.Sprintf(" (reviewed by %s)", r.ReviewerID)
	}
	return msg
}

// textContent encodes a Lark text message body
func textContent(text string) (string, error) {
	b, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message content: %w", err)
	}
	return string(b), nil
}

// NopNotifier drops notifications; it is used when Lark is not configured
type NopNotifier struct {
	logger *zap.Logger
}

// NewNopNotifier creates a notifier that only logs
func NewNopNotifier(logger *zap.Logger) *NopNotifier {
	return &NopNotifier{logger: logger}
}

// NotifyApprovers logs and returns nil
func (n *NopNotifier) NotifyApprovers(_ context.Context, record *entity.ApprovalRecord, approvers []string) error {
	n.logger.Debug("Lark disabled, skipping approver notification",
		zap.Int64("record_id", record.ID),
		zap.Strings("approvers", approvers))
	return nil
}

var (
	_ port.ApproverNotifier = (*Notifier)(nil)
	_ port.ApproverNotifier = (*NopNotifier)(nil)
)
