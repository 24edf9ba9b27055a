package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportdesk/helpdesk-api/internal/auth"
	"github.com/supportdesk/helpdesk-api/internal/config"
	"github.com/supportdesk/helpdesk-api/internal/domain"
	"github.com/supportdesk/helpdesk-api/internal/events"
	"github.com/supportdesk/helpdesk-api/internal/repository"
	apperrors "github.com/supportdesk/helpdesk-api/pkg/errorutil"
)

// RegisterInput describes a new account.
type RegisterInput struct {
	FirstName        string
	LastName         string
	Email            string
	Company          string
	Password         string
	Role             string
	SendWelcomeEmail bool
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration, login and password changes.
type AuthService struct {
	users      repository.UserRepository
	names      NameCache
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	bcryptCost int
	now        Clock
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Names      NameCache
	Dispatcher events.Dispatcher
	Clock      Clock
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	now := deps.Clock
	if now == nil {
		now = SystemClock
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		names:      deps.Names,
		dispatcher: deps.Dispatcher,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		now:        now,
		logger:     logger,
	}
}

// Register creates an account. A taken email is a conflict.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, apperrors.NewValidationError("email is required", map[string]any{"field": "email"})
	}
	if input.Password == "" {
		return nil, apperrors.NewValidationError("password is required", map[string]any{"field": "password"})
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !apperrors.IsNoRows(err) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = domain.DefaultUserRole
	}
	user := &domain.User{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		Company:      strings.TrimSpace(input.Company),
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, err
	}

	s.refreshDisplayName(ctx, user)

	if s.dispatcher != nil {
		s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventUserRegistered,
			Timestamp: s.now(),
			Payload: events.UserRegisteredPayload{
				Email:            user.Email,
				FirstName:        user.FirstName,
				DisplayName:      user.DisplayName(),
				SendWelcomeEmail: input.SendWelcomeEmail,
			},
		})
	}
	return user, nil
}

// Login checks the password and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.Email, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// ChangePassword replaces the stored hash for email.
func (s *AuthService) ChangePassword(ctx context.Context, email, newPassword string) error {
	if newPassword == "" {
		return apperrors.NewValidationError("new_password is required", map[string]any{"field": "new_password"})
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, strings.TrimSpace(email), hash); err != nil {
		if apperrors.IsNoRows(err) {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) refreshDisplayName(ctx context.Context, user *domain.User) {
	if s.names == nil {
		return
	}
	if err := s.names.Set(ctx, user.Email, user.DisplayName()); err != nil {
		s.logger.Warn("display name cache refresh failed", zap.String("email", user.Email), zap.Error(err))
		if err := s.names.Forget(ctx, user.Email); err != nil {
			s.logger.Warn("display name cache evict failed", zap.String("email", user.Email), zap.Error(err))
		}
	}
}
