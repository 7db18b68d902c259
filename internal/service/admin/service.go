// Package admin implements the administration area: system overview, user
// management and mail statistics.
package admin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"mailnight/internal/htmltext"
	"mailnight/internal/model"
	"mailnight/internal/repository"
	"mailnight/pkg/rbac"
)

const (
	UsersPageSize  = 20
	EmailsPageSize = 25
	recentLimit    = 10
	topSenders     = 5
	statsDays      = 7
	previewLen     = 80
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidRole  = errors.New("unknown role")
	ErrSelfDemote   = errors.New("you cannot remove your own admin role")
	ErrSelfDelete   = errors.New("you cannot delete your own account")
)

type UserStore interface {
	FindByID(ctx context.Context, id int) (*model.User, error)
	List(ctx context.Context, offset, limit int) ([]model.AdminUser, int, error)
	AddRole(ctx context.Context, id int, role string) error
	RemoveRole(ctx context.Context, id int, role string) error
	GetRoles(ctx context.Context, id int) ([]string, error)
	DeleteWithEmails(ctx context.Context, id int) error
}

type StatsStore interface {
	SystemCounts(ctx context.Context, dayStart, weekStart time.Time) (model.AdminOverview, error)
	RecentUsers(ctx context.Context, limit int) ([]model.User, error)
	AccountCounts(ctx context.Context, userID int) (sent, received, drafts int, err error)
	DailyCounts(ctx context.Context, since time.Time) ([]model.DateCount, error)
	CategoryCounts(ctx context.Context, userID int) ([]model.CategoryStat, error)
	TopSenders(ctx context.Context, limit int) ([]model.SenderStat, error)
	Totals(ctx context.Context) (users, emails, drafts, attachments int, err error)
}

type EmailLister interface {
	List(ctx context.Context, f repository.ListFilter, offset, limit int) ([]model.EmailListItem, int, error)
}

type AttachmentPaths interface {
	PathsByUser(ctx context.Context, userID int) ([]string, error)
}

type FileRemover interface {
	Remove(path string) error
}

type Service struct {
	users       UserStore
	stats       StatsStore
	emails      EmailLister
	attachments AttachmentPaths
	files       FileRemover
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(users UserStore, stats StatsStore, emails EmailLister, attachments AttachmentPaths, files FileRemover, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:       users,
		stats:       stats,
		emails:      emails,
		attachments: attachments,
		files:       files,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) Overview(ctx context.Context) (*model.AdminOverview, error) {
	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	o, err := s.stats.SystemCounts(ctx, dayStart, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, fmt.Errorf("system counts: %w", err)
	}
	if o.RecentUsers, err = s.stats.RecentUsers(ctx, recentLimit); err != nil {
		return nil, fmt.Errorf("recent users: %w", err)
	}
	if o.RecentEmails, _, err = s.listEmails(ctx, repository.ListFilter{Box: repository.BoxAll}, 0, recentLimit); err != nil {
		return nil, err
	}
	return &o, nil
}

// Users lists accounts newest first. IsActive is always true; the schema
// carries no activity state beyond the unused online flag.
func (s *Service) Users(ctx context.Context, page int) (*model.AdminUserPage, error) {
	page = max(page, 1)
	users, total, err := s.users.List(ctx, (page-1)*UsersPageSize, UsersPageSize)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []model.AdminUser{}
	}
	for i := range users {
		users[i].IsActive = true
	}
	return &model.AdminUserPage{Items: users, Page: page, PageSize: UsersPageSize, Total: total}, nil
}

func (s *Service) UserDetail(ctx context.Context, id int) (*model.AdminUserDetail, error) {
	u, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &model.AdminUserDetail{User: *u}
	if d.SentCount, d.ReceivedCount, d.DraftCount, err = s.stats.AccountCounts(ctx, id); err != nil {
		return nil, fmt.Errorf("account counts: %w", err)
	}
	if d.RecentEmails, _, err = s.listEmails(ctx, repository.ListFilter{Box: repository.BoxUser, UserID: id}, 0, recentLimit); err != nil {
		return nil, err
	}
	return d, nil
}

// ToggleRole grants role to user id, or revokes it when already held, and
// returns the resulting roles. Admins cannot touch their own admin role.
func (s *Service) ToggleRole(ctx context.Context, actorID, id int, role string) ([]string, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !rbac.IsValidRole(role) {
		return nil, ErrInvalidRole
	}
	if actorID == id && role == rbac.RoleAdmin {
		return nil, ErrSelfDemote
	}
	u, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if slices.Contains(u.Roles, role) {
		err = s.users.RemoveRole(ctx, id, role)
	} else {
		err = s.users.AddRole(ctx, id, role)
	}
	if err != nil {
		return nil, fmt.Errorf("toggle role: %w", err)
	}
	s.logger.Info("role toggled", zap.Int("actor_id", actorID), zap.Int("user_id", id), zap.String("role", role))
	return s.users.GetRoles(ctx, id)
}

// DeleteUser removes user id together with every email they sent or
// received, then their stored attachment files.
func (s *Service) DeleteUser(ctx context.Context, actorID, id int) error {
	if actorID == id {
		return ErrSelfDelete
	}
	if _, err := s.findUser(ctx, id); err != nil {
		return err
	}

	paths, err := s.attachments.PathsByUser(ctx, id)
	if err != nil {
		return fmt.Errorf("attachment paths: %w", err)
	}
	if err := s.users.DeleteWithEmails(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	for _, p := range paths {
		if err := s.files.Remove(p); err != nil {
			s.logger.Warn("failed to remove attachment file", zap.String("path", p), zap.Error(err))
		}
	}
	s.logger.Info("user deleted", zap.Int("actor_id", actorID), zap.Int("user_id", id), zap.Int("files", len(paths)))
	return nil
}

// Emails lists every email in the system, drafts included.
func (s *Service) Emails(ctx context.Context, page int, search string) (*model.EmailPage, error) {
	page = max(page, 1)
	f := repository.ListFilter{Box: repository.BoxAll, Query: strings.TrimSpace(search)}
	items, total, err := s.listEmails(ctx, f, (page-1)*EmailsPageSize, EmailsPageSize)
	if err != nil {
		return nil, err
	}
	return &model.EmailPage{Items: items, Page: page, PageSize: EmailsPageSize, Total: total}, nil
}

// Statistics covers the last seven UTC days, today included.
func (s *Service) Statistics(ctx context.Context) (*model.AdminStatistics, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	first := today.AddDate(0, 0, -(statsDays - 1))

	counts, err := s.stats.DailyCounts(ctx, first)
	if err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}
	st := &model.AdminStatistics{Daily: make([]model.DateCount, statsDays)}
	for i := range st.Daily {
		st.Daily[i].Date = first.AddDate(0, 0, i)
	}
	for _, c := range counts {
		if i := int(c.Date.Sub(first).Hours() / 24); i >= 0 && i < statsDays {
			st.Daily[i].Count += c.Count
		}
	}

	if st.Categories, err = s.stats.CategoryCounts(ctx, 0); err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}
	if st.TopSenders, err = s.stats.TopSenders(ctx, topSenders); err != nil {
		return nil, fmt.Errorf("top senders: %w", err)
	}
	if st.TotalUsers, st.TotalEmails, st.TotalDrafts, st.TotalAttachments, err = s.stats.Totals(ctx); err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}
	return st, nil
}

func (s *Service) findUser(ctx context.Context, id int) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *Service) listEmails(ctx context.Context, f repository.ListFilter, offset, limit int) ([]model.EmailListItem, int, error) {
	items, total, err := s.emails.List(ctx, f, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list emails: %w", err)
	}
	if items == nil {
		items = []model.EmailListItem{}
	}
	for i := range items {
		items[i].Preview = htmltext.Preview(items[i].Preview, previewLen)
	}
	return items, total, nil
}
