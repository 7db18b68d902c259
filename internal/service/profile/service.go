// Package profile serves the signed-in user's own account page.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"mailnight/internal/model"
	"mailnight/internal/repository"
	"mailnight/internal/service/auth"
	"mailnight/internal/storage"
	"mailnight/pkg/util"
)

const recentActivity = 5

var (
	ErrNameRequired     = errors.New("name and surname are required")
	ErrFieldTooLong     = errors.New("name and surname are limited to 50 characters, about to 500")
	ErrInvalidImage     = errors.New("profile image must be an image file")
	ErrImageTooLarge    = errors.New("profile image is too large")
	ErrWrongPassword    = errors.New("current password is incorrect")
	ErrPasswordMismatch = auth.ErrPasswordMismatch
	ErrWeakPassword     = auth.ErrWeakPassword
)

type UserStore interface {
	FindByID(ctx context.Context, id int) (*model.User, error)
	UpdateProfile(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id int, hash string) error
}

type StatsStore interface {
	UserTotals(ctx context.Context, userID int) (model.UserTotals, error)
}

type EmailLister interface {
	List(ctx context.Context, f repository.ListFilter, offset, limit int) ([]model.EmailListItem, int, error)
}

type FileStore interface {
	Save(dir, originalName string, r io.Reader) (storage.SavedFile, error)
	Remove(path string) error
}

type Service struct {
	users    UserStore
	stats    StatsStore
	emails   EmailLister
	files    FileStore
	maxImage int64
	logger   *zap.Logger
}

func NewService(users UserStore, stats StatsStore, emails EmailLister, files FileStore, maxImage int64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxImage <= 0 {
		maxImage = 5 << 20
	}
	return &Service{users: users, stats: stats, emails: emails, files: files, maxImage: maxImage, logger: logger}
}

func (s *Service) Get(ctx context.Context, userID int) (*model.Profile, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	t, err := s.stats.UserTotals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user totals: %w", err)
	}

	p := &model.Profile{
		User:           *u,
		SentCount:      t.Sent,
		ReceivedCount:  t.Received,
		StarredCount:   t.Starred,
		ReadCount:      t.ReadReceived,
		RecentActivity: []model.Activity{},
	}
	if t.Received > 0 {
		p.ReadRate = math.Round(float64(t.ReadReceived) / float64(t.Received) * 100)
	}

	items, _, err := s.emails.List(ctx, repository.ListFilter{Box: repository.BoxActivity, UserID: userID}, 0, recentActivity)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	for _, it := range items {
		a := model.Activity{EmailID: it.ID, Subject: it.Subject, CreatedAt: it.CreatedAt, Partner: it.Sender}
		if it.Sender.ID == userID {
			a.Outgoing = true
			if it.Receiver != nil {
				a.Partner = *it.Receiver
			}
		}
		p.RecentActivity = append(p.RecentActivity, a)
	}
	return p, nil
}

type UpdateInput struct {
	Name    string
	Surname string
	About   string
	// Image replaces the profile picture when set.
	Image *storage.Upload
}

// Update changes the editable profile fields. A new image replaces the old
// file.
func (s *Service) Update(ctx context.Context, userID int, in UpdateInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	if in.Name == "" || in.Surname == "" {
		return nil, ErrNameRequired
	}
	if utf8.RuneCountInString(in.Name) > 50 || utf8.RuneCountInString(in.Surname) > 50 || utf8.RuneCountInString(in.About) > 500 {
		return nil, ErrFieldTooLong
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Name, u.Surname, u.About = in.Name, in.Surname, in.About

	var oldImage string
	if in.Image != nil && in.Image.Size > 0 {
		path, err := s.saveImage(*in.Image)
		if err != nil {
			return nil, err
		}
		oldImage, u.ImageURL = u.ImageURL, path
	}

	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if oldImage != "" {
		if err := s.files.Remove(oldImage); err != nil {
			s.logger.Warn("failed to remove old profile image", zap.Int("user_id", userID), zap.Error(err))
		}
	}
	return u, nil
}

func (s *Service) saveImage(img storage.Upload) (string, error) {
	if !strings.HasPrefix(strings.ToLower(img.ContentType), "image/") || img.Content == nil {
		return "", ErrInvalidImage
	}
	if img.Size > s.maxImage {
		return "", ErrImageTooLarge
	}
	saved, err := s.files.Save(storage.DirProfiles, img.FileName, io.LimitReader(img.Content, s.maxImage+1))
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	if saved.Size > s.maxImage {
		_ = s.files.Remove(saved.Path)
		return "", ErrImageTooLarge
	}
	return saved.Path, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID int, current, next, confirm string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !util.CheckPassword(current, u.PasswordHash) {
		return ErrWrongPassword
	}
	if err := auth.ValidatePassword(next, confirm); err != nil {
		return err
	}
	hash, err := util.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.Info("password changed", zap.Int("user_id", userID))
	return nil
}
