package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/asktracker/asktracker-go/internal/crypto"
	"github.com/asktracker/asktracker-go/internal/metrics"
	"github.com/asktracker/asktracker-go/internal/model"
	"github.com/asktracker/asktracker-go/internal/repository"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

var (
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmail       = errors.New("value is not a valid email address")
	ErrNameRequired       = errors.New("name is required")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrDuplicateEmail     = errors.New("user with this email already exists")
	ErrUserNotFound       = errors.New("user not found, please sign up first")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
	ErrNotFound           = errors.New("not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// UserStore is the credential storage consumed by AuthService. Create must
// enforce email uniqueness atomically and report violations with
// repository.ErrDuplicateEmail.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// LoginLimiter tracks failed logins per email.
type LoginLimiter interface {
	Locked(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// AuthService handles registration, login and user lookup.
type AuthService struct {
	store    UserStore
	hasher   crypto.Hasher
	tokens   *crypto.TokenCodec
	tokenTTL time.Duration
	limiter  LoginLimiter
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// AuthOption configures optional AuthService collaborators.
type AuthOption func(*AuthService)

// WithLoginLimiter enables failed-login lockout.
func WithLoginLimiter(l LoginLimiter) AuthOption {
	return func(s *AuthService) { s.limiter = l }
}

// WithMetrics records registration and login outcomes.
func WithMetrics(m *metrics.Metrics) AuthOption {
	return func(s *AuthService) { s.metrics = m }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) AuthOption {
	return func(s *AuthService) { s.logger = l }
}

// NewAuthService creates a new AuthService.
func NewAuthService(store UserStore, hasher crypto.Hasher, tokens *crypto.TokenCodec, tokenTTL time.Duration, opts ...AuthOption) *AuthService {
	s := &AuthService{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new user account. The email uniqueness check runs
// before hashing; the store's unique constraint settles concurrent races.
func (s *AuthService) Register(ctx context.Context, req model.CreateUserRequest) (model.UserResponse, error) {
	resp, err := s.register(ctx, req)
	s.metrics.ObserveRegistration(outcome(err))
	return resp, err
}

func (s *AuthService) register(ctx context.Context, req model.CreateUserRequest) (model.UserResponse, error) {
	if req.Email == "" {
		return model.UserResponse{}, ErrEmailRequired
	}
	if err := validateEmail(req.Email); err != nil {
		return model.UserResponse{}, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return model.UserResponse{}, ErrNameRequired
	}
	if len(req.Password) < MinPasswordLength {
		return model.UserResponse{}, ErrWeakPassword
	}

	_, err := s.store.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return model.UserResponse{}, ErrDuplicateEmail
	case !errors.Is(err, repository.ErrUserNotFound):
		return model.UserResponse{}, storageError(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.UserResponse{}, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.UserResponse{}, ErrDuplicateEmail
		}
		return model.UserResponse{}, storageError(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)

	return user.ToResponse(), nil
}

// Login verifies the credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error) {
	resp, err := s.login(ctx, req)
	s.metrics.ObserveLogin(outcome(err))
	return resp, err
}

func (s *AuthService) login(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error) {
	if err := validateEmail(req.Email); err != nil {
		return model.LoginResponse{}, err
	}

	if s.limiter != nil {
		locked, err := s.limiter.Locked(ctx, req.Email)
		if err != nil {
			s.logger.WarnContext(ctx, "login limiter unavailable", "error", err)
		} else if locked {
			return model.LoginResponse{}, ErrTooManyAttempts
		}
	}

	user, err := s.store.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.LoginResponse{}, ErrUserNotFound
		}
		return model.LoginResponse{}, storageError(err)
	}

	match, err := s.hasher.Verify(user.PasswordHash, req.Password)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored password hash unreadable", "user_id", user.ID, "error", err)
		match = false
	}
	if !match {
		if s.limiter != nil {
			if err := s.limiter.RecordFailure(ctx, req.Email); err != nil {
				s.logger.WarnContext(ctx, "recording login failure", "error", err)
			}
		}
		return model.LoginResponse{}, ErrInvalidCredentials
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, req.Email); err != nil {
			s.logger.WarnContext(ctx, "resetting login failures", "error", err)
		}
	}

	token, err := s.tokens.Issue(user.ID, user.Email, s.tokenTTL)
	if err != nil {
		return model.LoginResponse{}, fmt.Errorf("issuing token: %w", err)
	}

	return model.LoginResponse{
		User:        user.ToResponse(),
		AccessToken: token,
		TokenType:   model.TokenTypeBearer,
	}, nil
}

// GetUserByID retrieves a user by ID and returns safe user data.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (model.UserResponse, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.UserResponse{}, ErrNotFound
		}
		return model.UserResponse{}, storageError(err)
	}

	return user.ToResponse(), nil
}

// validateEmail accepts a bare addr-spec only; display names and angle
// brackets are rejected.
func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

func storageError(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

// outcome maps a service error onto a metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrEmailRequired):
		return "email_required"
	case errors.Is(err, ErrInvalidEmail):
		return "invalid_email"
	case errors.Is(err, ErrNameRequired):
		return "name_required"
	case errors.Is(err, ErrWeakPassword):
		return "weak_password"
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrTooManyAttempts):
		return "too_many_attempts"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "error"
	}
}
