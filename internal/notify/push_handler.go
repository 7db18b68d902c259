package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	mqcontracts "mailnight/contracts/mq"
	"mailnight/internal/model"
	"mailnight/pkg/logger"
	"mailnight/pkg/util"
)

const pushEmailSentHandler = "push_email_sent"

// Pusher delivers a frame to every connection of a user.
type Pusher interface {
	SendJSON(userID int, v any) error
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, key string) bool
}

// PushHandler consumes mail events and forwards them to connected users.
type PushHandler struct {
	hub     Pusher
	deduper Deduper
	logger  *zap.Logger
}

func NewPushHandler(hub Pusher, deduper Deduper, logger *zap.Logger) *PushHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushHandler{hub: hub, deduper: deduper, logger: logger}
}

// HandleEmailSent pushes a new_email frame and a toast to the receiver.
// Redeliveries of the same email are dropped.
func (h *PushHandler) HandleEmailSent(ctx context.Context, data json.RawMessage) error {
	var p mqcontracts.EmailSentPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return util.Permanent(fmt.Errorf("decode email.sent: %w", err))
	}
	if p.ReceiverID == 0 {
		return util.Permanent(fmt.Errorf("email.sent %d has no receiver", p.EmailID))
	}

	if h.deduper != nil && !h.deduper.AcquireOnce(ctx, pushEmailSentHandler, strconv.Itoa(p.EmailID)) {
		return nil
	}

	if err := h.hub.SendJSON(p.ReceiverID, model.Notification{Type: model.PushNewEmail, Data: p}); err != nil {
		return err
	}
	toast := model.Toast{
		Title:   "New email",
		Message: fmt.Sprintf("%s: %s", p.SenderName, p.Subject),
		Level:   "info",
	}
	if err := h.hub.SendJSON(p.ReceiverID, model.Notification{Type: model.PushToast, Data: toast}); err != nil {
		return err
	}

	logger.WithTrace(ctx, h.logger).Debug("pushed new email",
		zap.Int("email_id", p.EmailID),
		zap.Int("receiver_id", p.ReceiverID),
	)
	return nil
}

// HandleUnreadCount pushes the latest unread count. Counts are absolute, so
// redeliveries are harmless and not deduplicated.
func (h *PushHandler) HandleUnreadCount(ctx context.Context, data json.RawMessage) error {
	var p mqcontracts.UnreadCountPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return util.Permanent(fmt.Errorf("decode mailbox.unread: %w", err))
	}
	return h.hub.SendJSON(p.UserID, model.Notification{Type: model.PushUnreadCount, Data: p})
}
