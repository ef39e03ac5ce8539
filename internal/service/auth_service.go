package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"user-auth/internal/crypto"
	"user-auth/internal/domain"
	"user-auth/internal/observability"
	"user-auth/internal/repository"
)

// dummyPassword is hashed once at construction so logins for unknown emails
// can pay the same verify cost as a wrong password.
const dummyPassword = "user-auth:timing-equalizer"

// AuthService describes registration, login, session and password reset flows.
type AuthService interface {
	RegisterUser(ctx context.Context, email, password string) (*domain.User, error)
	ValidLogin(ctx context.Context, email, password string) (bool, error)
	CreateSession(ctx context.Context, email string) (*string, error)
	GetUserBySession(ctx context.Context, sessionID string) (*domain.User, error)
	DestroySession(ctx context.Context, userID int64) error
	GetResetPasswordToken(ctx context.Context, email string) (string, error)
	UpdatePassword(ctx context.Context, resetToken, newPassword string) error
}

// Option configures the auth service.
type Option func(*authService)

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *authService) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics records outcomes on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *authService) {
		s.metrics = m
	}
}

// WithEmailCaseSensitive keeps email case as given. By default emails are
// lower-cased before registration and every lookup.
func WithEmailCaseSensitive(sensitive bool) Option {
	return func(s *authService) {
		s.caseSensitive = sensitive
	}
}

// WithEqualizedLoginTiming toggles the dummy verify on unknown emails. On by default.
func WithEqualizedLoginTiming(enabled bool) Option {
	return func(s *authService) {
		s.equalizeTiming = enabled
	}
}

type authService struct {
	users          repository.UserRepository
	hasher         crypto.PasswordHasher
	tokens         crypto.TokenGenerator
	log            logrus.FieldLogger
	metrics        *observability.Metrics
	caseSensitive  bool
	equalizeTiming bool
	dummyHash      string
}

// NewAuthService wires the service to its store, hasher and token source.
func NewAuthService(users repository.UserRepository, hasher crypto.PasswordHasher, tokens crypto.TokenGenerator, opts ...Option) (AuthService, error) {
	if users == nil {
		return nil, errors.New("user repository is required")
	}
	if hasher == nil {
		return nil, errors.New("password hasher is required")
	}
	if tokens == nil {
		return nil, errors.New("token generator is required")
	}

	s := &authService{
		users:          users,
		hasher:         hasher,
		tokens:         tokens,
		log:            logrus.StandardLogger(),
		equalizeTiming: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.equalizeTiming {
		hash, err := hasher.Hash(dummyPassword)
		if err != nil {
			return nil, fmt.Errorf("prepare login timing hash: %w", err)
		}
		s.dummyHash = hash
	}
	return s, nil
}

func (s *authService) RegisterUser(ctx context.Context, email, password string) (*domain.User, error) {
	email = s.normalizeEmail(email)
	if email == "" || password == "" {
		s.metrics.ObserveRegistration("invalid")
		return nil, ErrInvalidInput
	}

	_, err := s.users.FindUserBy(ctx, domain.ByEmail(email))
	switch {
	case err == nil:
		s.metrics.ObserveRegistration("exists")
		return nil, ErrUserExists
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			s.metrics.ObserveRegistration("invalid")
		}
		return nil, err
	}

	user, err := s.users.AddUser(ctx, email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			s.metrics.ObserveRegistration("exists")
			return nil, ErrUserExists
		}
		return nil, err
	}

	s.metrics.ObserveRegistration("created")
	s.log.WithField("user_id", user.ID).Info("user registered")
	return sanitizeUser(user), nil
}

func (s *authService) ValidLogin(ctx context.Context, email, password string) (bool, error) {
	email = s.normalizeEmail(email)
	if email == "" {
		s.rejectUnknownLogin(password)
		return false, nil
	}

	user, err := s.users.FindUserBy(ctx, domain.ByEmail(email))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return false, err
		}
		s.rejectUnknownLogin(password)
		return false, nil
	}

	if !s.hasher.Verify(password, user.HashedPassword) {
		s.metrics.ObserveLogin("invalid")
		s.log.WithField("user_id", user.ID).Debug("password mismatch")
		return false, nil
	}
	s.metrics.ObserveLogin("ok")
	return true, nil
}

// rejectUnknownLogin spends one verify against the dummy hash so a login
// without a matching user costs as much as a wrong password.
func (s *authService) rejectUnknownLogin(password string) {
	if s.equalizeTiming {
		s.hasher.Verify(password, s.dummyHash)
	}
	s.metrics.ObserveLogin("invalid")
}

func (s *authService) CreateSession(ctx context.Context, email string) (*string, error) {
	user, err := s.users.FindUserBy(ctx, domain.ByEmail(s.normalizeEmail(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	sessionID, err := s.tokens.NewToken()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	if err := s.users.UpdateUser(ctx, user.ID, domain.UserUpdate{SessionID: domain.SetTo(sessionID)}); err != nil {
		return nil, err
	}

	s.metrics.ObserveSession("created")
	s.log.WithField("user_id", user.ID).Info("session created")
	return &sessionID, nil
}

func (s *authService) GetUserBySession(ctx context.Context, sessionID string) (*domain.User, error) {
	if sessionID == "" {
		return nil, nil
	}
	user, err := s.users.FindUserBy(ctx, domain.BySessionID(sessionID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *authService) DestroySession(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return nil
	}
	err := s.users.UpdateUser(ctx, userID, domain.UserUpdate{SessionID: domain.Clear()})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.WithField("user_id", userID).Debug("destroy session for unknown user")
			return nil
		}
		return err
	}
	s.metrics.ObserveSession("destroyed")
	return nil
}

func (s *authService) GetResetPasswordToken(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindUserBy(ctx, domain.ByEmail(s.normalizeEmail(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.ObservePasswordReset("requested", "unknown_user")
			return "", ErrUserNotFound
		}
		return "", err
	}

	token, err := s.tokens.NewToken()
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.users.UpdateUser(ctx, user.ID, domain.UserUpdate{ResetToken: domain.SetTo(token)}); err != nil {
		return "", err
	}

	s.metrics.ObservePasswordReset("requested", "ok")
	s.log.WithField("user_id", user.ID).Info("password reset requested")
	return token, nil
}

func (s *authService) UpdatePassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" || newPassword == "" {
		s.metrics.ObservePasswordReset("completed", "invalid")
		return ErrInvalidInput
	}

	user, err := s.users.FindUserBy(ctx, domain.ByResetToken(resetToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.ObservePasswordReset("completed", "invalid_token")
			return ErrInvalidToken
		}
		return err
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			s.metrics.ObservePasswordReset("completed", "invalid")
		}
		return err
	}

	// The guard makes the token single-use: a concurrent reset that already
	// consumed it leaves no row matching both id and token.
	err = s.users.UpdateUser(ctx, user.ID, domain.UserUpdate{
		HashedPassword:  &hash,
		ResetToken:      domain.Clear(),
		ResetTokenMatch: &resetToken,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.ObservePasswordReset("completed", "invalid_token")
			return ErrInvalidToken
		}
		return err
	}

	s.metrics.ObservePasswordReset("completed", "ok")
	s.log.WithField("user_id", user.ID).Info("password updated")
	return nil
}

// hashPassword reports passwords the hasher refuses as ErrInvalidInput.
func (s *authService) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, crypto.ErrPasswordTooLong) || errors.Is(err, crypto.ErrEmptyPassword) {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return hash, err
}

func (s *authService) normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if !s.caseSensitive {
		email = strings.ToLower(email)
	}
	return email
}

// sanitizeUser drops the password hash from records handed to callers.
func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clone := *user
	clone.HashedPassword = ""
	return &clone
}
