// Package auth registers users and issues access tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"mailnight/internal/model"
	"mailnight/internal/repository"
	"mailnight/pkg/rbac"
	"mailnight/pkg/util"
)

var (
	ErrMissingFields      = errors.New("name, surname, email, username and password are required")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidUsername    = errors.New("username must be 3-30 letters, digits or underscores")
	ErrWeakPassword       = errors.New("password needs at least 6 characters with an upper-case letter, a lower-case letter and a digit")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrEmailExists        = errors.New("email is already in use")
	ErrUsernameExists     = errors.New("username is already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	UpdateLastLogin(ctx context.Context, id int, at time.Time) error
}

type Service struct {
	users     UserStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(users UserStore, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
		now:       time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Surname  string
	Email    string
	UserName string
	Password string
	Confirm  string
}

// Register creates a user with the "user" role.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.Email = strings.TrimSpace(in.Email)
	in.UserName = strings.TrimSpace(in.UserName)

	if in.Name == "" || in.Surname == "" || in.Email == "" || in.UserName == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, ErrInvalidEmail
	}
	if !usernamePattern.MatchString(in.UserName) {
		return nil, ErrInvalidUsername
	}
	if err := ValidatePassword(in.Password, in.Confirm); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailExists
	}
	exists, err = s.users.ExistsByUsername(ctx, in.UserName)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return nil, ErrUsernameExists
	}

	hash, err := util.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Name:         in.Name,
		Surname:      in.Surname,
		UserName:     in.UserName,
		Email:        in.Email,
		PasswordHash: hash,
		Roles:        []string{rbac.RoleUser},
	}
	if err := s.users.Create(ctx, u); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	s.logger.Info("user registered", zap.Int("user_id", u.ID))
	return u, nil
}

// Login checks credentials, stamps the login time and returns a JWT.
func (s *Service) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	u, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !util.CheckPassword(password, u.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn("failed to stamp last login", zap.Int("user_id", u.ID), zap.Error(err))
	} else {
		u.LastLoginAt = &now
	}

	token, err := util.GenerateJWT(u.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// ValidatePassword applies the password policy: at least six characters
// including an upper-case letter, a lower-case letter and a digit.
func ValidatePassword(password, confirm string) error {
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if len([]rune(password)) < 6 || !upper || !lower || !digit {
		return ErrWeakPassword
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}
