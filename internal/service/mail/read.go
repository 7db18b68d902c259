package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mailnight/internal/htmltext"
	"mailnight/internal/model"
	"mailnight/internal/repository"
	"mailnight/pkg/logger"
)

// GetDetail returns email id as seen by viewerID. A viewer who is neither
// sender nor receiver gets ErrNotFound. For the receiver a missing summary
// is generated and stored, and the email is marked read.
func (s *Service) GetDetail(ctx context.Context, id, viewerID int) (*model.EmailDetail, error) {
	e, err := s.load(ctx, id, viewerID)
	if errors.Is(err, ErrForbidden) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	log := logger.WithTrace(ctx, s.logger)

	if e.IsReceiver(viewerID) {
		if e.AISummary == nil || *e.AISummary == "" {
			summary := s.analyzer.Summarize(ctx, e.Subject, e.Body)
			if err := s.emails.UpdateSummary(ctx, e.ID, summary); err != nil {
				log.Warn("failed to store summary", zap.Int("email_id", e.ID), zap.Error(err))
			}
			e.AISummary = &summary
		}
		if !e.IsRead {
			now := s.now()
			if err := s.emails.MarkRead(ctx, e.ID, now); err != nil {
				return nil, fmt.Errorf("mark read: %w", err)
			}
			e.IsRead = true
			e.ReadAt = &now
			s.pushUnread(ctx, viewerID)
		}
	}

	detail := &model.EmailDetail{Email: *e, Attachments: []model.Attachment{}}

	sender, err := s.users.FindByID(ctx, e.SenderID)
	if err != nil {
		return nil, fmt.Errorf("find sender: %w", err)
	}
	detail.Sender = sender.Party()

	if e.ReceiverID != nil {
		receiver, err := s.users.FindByID(ctx, *e.ReceiverID)
		if err != nil {
			return nil, fmt.Errorf("find receiver: %w", err)
		}
		p := receiver.Party()
		detail.Receiver = &p
	}

	if e.CategoryID != nil {
		c, err := s.categories.FindByID(ctx, *e.CategoryID)
		switch {
		case err == nil:
			detail.Category = c
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("find category: %w", err)
		}
	}

	attachments, err := s.attachments.ListByEmail(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	if attachments != nil {
		detail.Attachments = attachments
	}
	return detail, nil
}

func (s *Service) Inbox(ctx context.Context, userID, page int) (*model.EmailPage, error) {
	return s.list(ctx, repository.ListFilter{Box: repository.BoxInbox, UserID: userID}, page)
}

func (s *Service) Sent(ctx context.Context, userID, page int) (*model.EmailPage, error) {
	return s.list(ctx, repository.ListFilter{Box: repository.BoxSent, UserID: userID}, page)
}

func (s *Service) Starred(ctx context.Context, userID, page int) (*model.EmailPage, error) {
	return s.list(ctx, repository.ListFilter{Box: repository.BoxStarred, UserID: userID}, page)
}

func (s *Service) Drafts(ctx context.Context, userID, page int) (*model.EmailPage, error) {
	return s.list(ctx, repository.ListFilter{Box: repository.BoxDrafts, UserID: userID}, page)
}

// Category lists the inbox of userID restricted to categoryID.
func (s *Service) Category(ctx context.Context, userID, categoryID, page int) (*model.Category, *model.EmailPage, error) {
	c, err := s.categories.FindByID(ctx, categoryID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	p, err := s.list(ctx, repository.ListFilter{Box: repository.BoxCategory, UserID: userID, CategoryID: categoryID}, page)
	if err != nil {
		return nil, nil, err
	}
	return c, p, nil
}

// Search matches q against the mail userID can see. A blank query matches
// nothing.
func (s *Service) Search(ctx context.Context, userID int, q string, page int) (*model.EmailPage, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return &model.EmailPage{Items: []model.EmailListItem{}, Page: 1, PageSize: PageSize}, nil
	}
	return s.list(ctx, repository.ListFilter{Box: repository.BoxSearch, UserID: userID, Query: q}, page)
}

func (s *Service) Counts(ctx context.Context, userID int) (model.MailboxCounts, error) {
	return s.emails.Counts(ctx, userID)
}

func (s *Service) list(ctx context.Context, f repository.ListFilter, page int) (*model.EmailPage, error) {
	if page < 1 {
		page = 1
	}
	items, total, err := s.emails.List(ctx, f, (page-1)*PageSize, PageSize)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	for i := range items {
		items[i].Preview = htmltext.Preview(items[i].Preview, listPreview)
	}
	return &model.EmailPage{Items: items, Page: page, PageSize: PageSize, Total: total}, nil
}
