package mail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"mailnight/internal/model"
	"mailnight/internal/repository"
)

// ToggleStar flips the star of email id for either party and returns the
// new value.
func (s *Service) ToggleStar(ctx context.Context, id, userID int) (bool, error) {
	e, err := s.load(ctx, id, userID)
	if err != nil {
		return false, err
	}
	starred := !e.IsStarred
	if err := s.emails.SetStarred(ctx, id, starred); err != nil {
		return false, fmt.Errorf("set starred: %w", err)
	}
	return starred, nil
}

// MarkAsRead is allowed to the receiver only.
func (s *Service) MarkAsRead(ctx context.Context, id, userID int) error {
	e, err := s.load(ctx, id, userID)
	if err != nil {
		return err
	}
	if !e.IsReceiver(userID) {
		return ErrForbidden
	}
	if e.IsRead {
		return nil
	}
	if err := s.emails.MarkRead(ctx, id, s.now()); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	s.pushUnread(ctx, userID)
	return nil
}

// Delete hides email id from userID only. A user who sent mail to
// themselves loses it from both views.
func (s *Service) Delete(ctx context.Context, id, userID int) error {
	e, err := s.load(ctx, id, userID)
	if err != nil {
		return err
	}
	if e.SenderID == userID {
		if err := s.emails.SoftDelete(ctx, id, true); err != nil {
			return fmt.Errorf("delete as sender: %w", err)
		}
	}
	if e.IsReceiver(userID) {
		if err := s.emails.SoftDelete(ctx, id, false); err != nil {
			return fmt.Errorf("delete as receiver: %w", err)
		}
		if !e.IsRead {
			s.pushUnread(ctx, userID)
		}
	}
	return nil
}

// GenerateReply drafts an answer in the given tone. Only the receiver may
// ask; an empty string means no reply could be generated.
func (s *Service) GenerateReply(ctx context.Context, id, userID int, tone string) (string, error) {
	e, err := s.load(ctx, id, userID)
	if err != nil {
		return "", err
	}
	if !e.IsReceiver(userID) {
		return "", ErrForbidden
	}
	return s.analyzer.GenerateReply(ctx, e.Subject, e.Body, tone), nil
}

// RegenerateAnalysis reruns the analysis and overwrites summary and category.
func (s *Service) RegenerateAnalysis(ctx context.Context, id, userID int) (model.AnalysisResult, error) {
	e, err := s.load(ctx, id, userID)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	result := s.analyzer.Analyze(ctx, e.Subject, e.Body)
	if err := s.emails.UpdateAnalysis(ctx, id, result.Summary, result.CategoryID); err != nil {
		return model.AnalysisResult{}, fmt.Errorf("update analysis: %w", err)
	}
	return result, nil
}

// OpenAttachment returns the attachment and its content. The caller closes
// the reader.
func (s *Service) OpenAttachment(ctx context.Context, attachmentID, userID int) (*model.Attachment, io.ReadCloser, error) {
	a, err := s.attachments.FindByID(ctx, attachmentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.load(ctx, a.EmailID, userID); err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(a.FilePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open attachment: %w", err)
	}
	return a, rc, nil
}
