package mail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	mqcontracts "mailnight/contracts/mq"
	"mailnight/internal/analysis"
	"mailnight/internal/htmltext"
	"mailnight/internal/model"
	"mailnight/internal/repository"
	"mailnight/internal/storage"
	"mailnight/pkg/logger"
	"mailnight/pkg/metrics"
)

type SendInput struct {
	To          string
	Subject     string
	Body        string
	Attachments []storage.Upload
}

// Send delivers a message from senderID. Nothing is persisted when
// validation or receiver lookup fails.
func (s *Service) Send(ctx context.Context, senderID int, in SendInput) (int, error) {
	to := strings.TrimSpace(in.To)
	if to == "" {
		return 0, ErrReceiverRequired
	}
	if strings.TrimSpace(in.Subject) == "" {
		return 0, ErrSubjectRequired
	}
	if utf8.RuneCountInString(in.Subject) > MaxSubjectLength {
		return 0, ErrSubjectTooLong
	}

	receiver, err := s.users.FindByEmail(ctx, to)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrReceiverNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find receiver: %w", err)
	}
	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		return 0, fmt.Errorf("find sender: %w", err)
	}

	body := htmltext.Sanitize(in.Body)
	result := s.analyzer.Analyze(ctx, in.Subject, body)

	e := &model.Email{
		SenderID:   senderID,
		ReceiverID: &receiver.ID,
		Subject:    in.Subject,
		Body:       body,
		AISummary:  &result.Summary,
		CategoryID: &result.CategoryID,
	}
	if err := s.emails.Create(ctx, e); err != nil {
		metrics.IncrementEmailSent("error")
		return 0, fmt.Errorf("create email: %w", err)
	}
	metrics.IncrementEmailSent("sent")

	s.saveAttachments(ctx, e.ID, in.Attachments)
	s.announce(ctx, e, sender, result)

	return e.ID, nil
}

// saveAttachments stores every upload within the size cap. Empty, oversized
// and unwritable files are skipped; the email is already committed.
func (s *Service) saveAttachments(ctx context.Context, emailID int, uploads []storage.Upload) {
	log := logger.WithTrace(ctx, s.logger)
	for _, u := range uploads {
		if u.Content == nil || u.Size <= 0 || u.Size > s.maxUpload {
			metrics.IncrementAttachmentSkipped()
			log.Info("attachment skipped", zap.Int("email_id", emailID), zap.String("file", u.FileName), zap.Int64("size", u.Size))
			continue
		}

		saved, err := s.files.Save(storage.DirAttachments, u.FileName, io.LimitReader(u.Content, s.maxUpload+1))
		if err != nil {
			metrics.IncrementAttachmentSkipped()
			log.Error("failed to store attachment", zap.Int("email_id", emailID), zap.String("file", u.FileName), zap.Error(err))
			continue
		}
		if saved.Size > s.maxUpload || saved.Size == 0 {
			metrics.IncrementAttachmentSkipped()
			_ = s.files.Remove(saved.Path)
			log.Info("attachment skipped", zap.Int("email_id", emailID), zap.String("file", u.FileName), zap.Int64("size", saved.Size))
			continue
		}

		contentType := u.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		a := &model.Attachment{
			EmailID:        emailID,
			FileName:       u.FileName,
			StoredFileName: saved.StoredName,
			FilePath:       saved.Path,
			ContentType:    contentType,
			FileSize:       saved.Size,
		}
		if err := s.attachments.Create(ctx, a); err != nil {
			_ = s.files.Remove(saved.Path)
			log.Error("failed to record attachment", zap.Int("email_id", emailID), zap.Error(err))
		}
	}
}

// announce publishes the new-mail notification and the receiver's unread
// count. Failures are logged and dropped.
func (s *Service) announce(ctx context.Context, e *model.Email, sender *model.User, result model.AnalysisResult) {
	if s.notifier == nil {
		return
	}
	log := logger.WithTrace(ctx, s.logger)

	party := sender.Party()
	p := mqcontracts.EmailSentPayload{
		EmailID:        e.ID,
		SenderID:       e.SenderID,
		ReceiverID:     *e.ReceiverID,
		SenderName:     party.FullName(),
		SenderInitials: party.Initials(),
		SenderEmail:    party.Email,
		Subject:        e.Subject,
		Preview:        htmltext.PlainPreview(e.Body, notifyPreview),
		Summary:        result.Summary,
		CategoryName:   analysis.CategoryName(result.CategoryID),
		SentAt:         e.CreatedAt,
	}
	if analysis.IsSystemCategory(result.CategoryID) {
		p.CategoryColor = analysis.SystemCategories[result.CategoryID-1].Color
	}
	if err := s.notifier.EmailSent(ctx, p); err != nil {
		log.Warn("failed to publish email.sent", zap.Int("email_id", e.ID), zap.Error(err))
	}

	s.pushUnread(ctx, *e.ReceiverID)
}

func (s *Service) pushUnread(ctx context.Context, userID int) {
	if s.notifier == nil {
		return
	}
	log := logger.WithTrace(ctx, s.logger)
	count, err := s.emails.CountUnread(ctx, userID)
	if err != nil {
		log.Warn("failed to count unread", zap.Int("user_id", userID), zap.Error(err))
		return
	}
	if err := s.notifier.UnreadCount(ctx, userID, count); err != nil {
		log.Warn("failed to publish unread count", zap.Int("user_id", userID), zap.Error(err))
	}
}

type DraftInput struct {
	// ID names an existing draft to overwrite; zero creates a new one.
	ID      int
	To      string
	Subject string
	Body    string
}

// SaveDraft creates or overwrites a draft. An address that matches no user
// leaves the draft without a receiver. No analysis runs on drafts.
func (s *Service) SaveDraft(ctx context.Context, senderID int, in DraftInput) (int, error) {
	if utf8.RuneCountInString(in.Subject) > MaxSubjectLength {
		return 0, ErrSubjectTooLong
	}

	var receiverID *int
	if to := strings.TrimSpace(in.To); to != "" {
		u, err := s.users.FindByEmail(ctx, to)
		switch {
		case err == nil:
			receiverID = &u.ID
		case !errors.Is(err, repository.ErrNotFound):
			return 0, fmt.Errorf("find receiver: %w", err)
		}
	}

	e := &model.Email{
		ID:         in.ID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Subject:    in.Subject,
		Body:       htmltext.Sanitize(in.Body),
		IsDraft:    true,
	}

	if in.ID != 0 {
		err := s.emails.UpdateDraft(ctx, e)
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrDraftNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("update draft: %w", err)
		}
		return e.ID, nil
	}

	if err := s.emails.Create(ctx, e); err != nil {
		return 0, fmt.Errorf("create draft: %w", err)
	}
	return e.ID, nil
}
