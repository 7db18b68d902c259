// Package mail implements sending, drafting, reading and organising mail
// between registered users.
package mail

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	mqcontracts "mailnight/contracts/mq"
	"mailnight/internal/model"
	"mailnight/internal/repository"
	"mailnight/internal/storage"
)

// MaxSubjectLength is the subject column width, in characters.
const MaxSubjectLength = 200

const (
	PageSize      = 25
	listPreview   = 80
	notifyPreview = 50
)

var (
	ErrReceiverRequired = errors.New("receiver is required")
	ErrSubjectRequired  = errors.New("subject is required")
	ErrSubjectTooLong   = errors.New("subject is limited to 200 characters")
	ErrReceiverNotFound = errors.New("receiver not found")
	ErrDraftNotFound    = errors.New("draft not found")
	ErrNotFound         = errors.New("email not found")
	ErrForbidden        = errors.New("not allowed to access this email")
)

type EmailStore interface {
	Create(ctx context.Context, e *model.Email) error
	FindByID(ctx context.Context, id int) (*model.Email, error)
	UpdateDraft(ctx context.Context, e *model.Email) error
	UpdateAnalysis(ctx context.Context, id int, summary string, categoryID int) error
	UpdateSummary(ctx context.Context, id int, summary string) error
	MarkRead(ctx context.Context, id int, at time.Time) error
	SetStarred(ctx context.Context, id int, starred bool) error
	SoftDelete(ctx context.Context, id int, asSender bool) error
	List(ctx context.Context, f repository.ListFilter, offset, limit int) ([]model.EmailListItem, int, error)
	Counts(ctx context.Context, userID int) (model.MailboxCounts, error)
	CountUnread(ctx context.Context, userID int) (int, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id int) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type CategoryStore interface {
	FindByID(ctx context.Context, id int) (*model.Category, error)
}

type AttachmentStore interface {
	Create(ctx context.Context, a *model.Attachment) error
	FindByID(ctx context.Context, id int) (*model.Attachment, error)
	ListByEmail(ctx context.Context, emailID int) ([]model.Attachment, error)
}

// FileStore writes and reads uploaded bytes.
type FileStore interface {
	Save(dir, originalName string, r io.Reader) (storage.SavedFile, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
}

// Analyzer is the best-effort AI collaborator. Its methods never fail.
type Analyzer interface {
	Analyze(ctx context.Context, subject, body string) model.AnalysisResult
	Summarize(ctx context.Context, subject, body string) string
	GenerateReply(ctx context.Context, subject, body, tone string) string
}

// Notifier announces new mail. Calls are fire-and-forget; errors are only
// logged.
type Notifier interface {
	EmailSent(ctx context.Context, p mqcontracts.EmailSentPayload) error
	UnreadCount(ctx context.Context, userID, count int) error
}

type Service struct {
	emails      EmailStore
	users       UserStore
	categories  CategoryStore
	attachments AttachmentStore
	files       FileStore
	analyzer    Analyzer
	notifier    Notifier
	maxUpload   int64
	logger      *zap.Logger
	now         func() time.Time
}

type Deps struct {
	Emails      EmailStore
	Users       UserStore
	Categories  CategoryStore
	Attachments AttachmentStore
	Files       FileStore
	Analyzer    Analyzer
	Notifier    Notifier
	// MaxAttachmentBytes caps a single attachment; larger ones are skipped.
	MaxAttachmentBytes int64
	Logger             *zap.Logger
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.MaxAttachmentBytes <= 0 {
		d.MaxAttachmentBytes = 25 << 20
	}
	return &Service{
		emails:      d.Emails,
		users:       d.Users,
		categories:  d.Categories,
		attachments: d.Attachments,
		files:       d.Files,
		analyzer:    d.Analyzer,
		notifier:    d.Notifier,
		maxUpload:   d.MaxAttachmentBytes,
		logger:      d.Logger,
		now:         time.Now,
	}
}

// load fetches email id and checks userID is one of its parties.
func (s *Service) load(ctx context.Context, id, userID int) (*model.Email, error) {
	e, err := s.emails.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !e.IsParty(userID) {
		return nil, ErrForbidden
	}
	return e, nil
}
