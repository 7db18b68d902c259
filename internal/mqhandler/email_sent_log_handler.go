package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "mailnight/contracts/mq"
	"mailnight/internal/model"
	"mailnight/pkg/logger"
	"mailnight/pkg/util"
)

type NotificationLogStore interface {
	Insert(ctx context.Context, log *model.NotificationLog) error
}

// EmailSentLogHandler records one notifications_log row per delivered email.
type EmailSentLogHandler struct {
	repo   NotificationLogStore
	logger *zap.Logger
}

func NewEmailSentLogHandler(repo NotificationLogStore, logger *zap.Logger) *EmailSentLogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailSentLogHandler{
		repo:   repo,
		logger: logger,
	}
}

// Handle writes the log row. Decode failures are permanent; store failures
// are returned as is so the consumer can retry them.
func (h *EmailSentLogHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.EmailSentPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal email sent payload", zap.Error(err))
		return util.Permanent(err)
	}
	if p.EmailID == 0 || p.ReceiverID == 0 {
		return util.Permanent(fmt.Errorf("email sent payload missing ids: email=%d receiver=%d", p.EmailID, p.ReceiverID))
	}

	entry := &model.NotificationLog{
		UserID:  p.ReceiverID,
		EmailID: p.EmailID,
		Message: fmt.Sprintf("New email from %s: %s", p.SenderName, p.Subject),
	}

	if err := h.repo.Insert(ctx, entry); err != nil {
		log.Error("Failed to insert notification log",
			zap.Int("email_id", p.EmailID),
			zap.Int("user_id", p.ReceiverID),
			zap.Error(err),
		)
		return err
	}

	log.Info("Notification log created",
		zap.Int("email_id", p.EmailID),
		zap.Int("user_id", p.ReceiverID),
	)
	return nil
}
