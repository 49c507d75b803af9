package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const minPasswordLength = 8

// AuthService coordinates login and password flows.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	outbox     persistence.Outbox
	tokenMgr   *auth.TokenManager
	logger     *zap.Logger
	bcryptCost int
	resetTTL   time.Duration
	now        func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Outbox            persistence.Outbox
	Logger            *zap.Logger
}

// LoginResult carries the session token issued at login.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// ResetTicket is the raw reset token handed to the mailer. Only its hash is stored.
type ResetTicket struct {
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		outbox:     deps.Outbox,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
		resetTTL:   time.Duration(cfg.PasswordResetTTLMinutes) * time.Minute,
		now:        time.Now,
	}
}

// Login authenticates by email and password. Unknown emails, wrong passwords and disabled
// accounts all fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, apperrors.NewDependencyUnavailable("user store", err)
	}
	if !user.Active {
		return nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("stored password hash unreadable", zap.String("user_id", user.ID), zap.Error(err))
		}
		return nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// Me returns the account behind actor.
func (s *AuthService) Me(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthenticated("account no longer exists")
		}
		return nil, apperrors.NewDependencyUnavailable("user store", err)
	}
	return user, nil
}

// RequestPasswordReset issues a reset token and queues it for the mailer. Unknown emails
// return a nil ticket and no error.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*ResetTicket, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, apperrors.NewDependencyUnavailable("user store", err)
	}
	if !user.Active {
		return nil, nil
	}

	raw := uuid.NewString()
	now := s.now()
	token := &domain.PasswordResetToken{
		UserID:    user.ID,
		Token:     hashResetToken(raw),
		ExpiresAt: now.Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, apperrors.NewDependencyUnavailable("password reset store", err)
	}

	if s.outbox != nil {
		msg := domain.Notification{
			ID:             uuid.NewString(),
			Event:          domain.EventPasswordReset,
			RecipientRole:  user.Role,
			RecipientID:    user.ID,
			RecipientEmail: user.Email,
			Subject:        "[Helpdesk] Password reset",
			Template:       string(domain.EventPasswordReset),
			Data:           map[string]string{"reset_token": raw},
			SendAfter:      now,
			CreatedAt:      now,
		}
		if err := s.outbox.Enqueue(ctx, msg); err != nil {
			s.logger.Warn("password reset mail not queued", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return &ResetTicket{Token: raw, ExpiresAt: token.ExpiresAt}, nil
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, rawToken, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperrors.NewInvalidInput("password must have at least 8 characters", map[string]any{"field": "new_password"})
	}
	token, err := s.resets.GetByToken(ctx, hashResetToken(rawToken))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewInvalidInput("reset token is invalid", nil)
		}
		return apperrors.NewDependencyUnavailable("password reset store", err)
	}
	if token.UsedAt != nil || s.now().After(token.ExpiresAt) {
		return apperrors.NewInvalidInput("reset token expired or already used", nil)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewInvalidInput("reset token is invalid", nil)
		}
		return apperrors.NewDependencyUnavailable("user store", err)
	}

	// consume first so a replayed token cannot set a second password
	if err := s.resets.MarkUsed(ctx, token.ID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewInvalidInput("reset token expired or already used", nil)
		}
		return apperrors.NewDependencyUnavailable("password reset store", err)
	}
	return s.setPassword(ctx, user, newPassword)
}

// ChangePassword verifies the current password before storing the new one.
func (s *AuthService) ChangePassword(ctx context.Context, actor domain.Actor, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperrors.NewInvalidInput("password must have at least 8 characters", map[string]any{"field": "new_password"})
	}
	user, err := s.Me(ctx, actor)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewInvalidInput("current password is incorrect", map[string]any{"field": "current_password"})
	}
	return s.setPassword(ctx, user, newPassword)
}

// BootstrapAdmin creates the first DSI administrator when the email is not taken yet.
func (s *AuthService) BootstrapAdmin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !apperrors.IsNotFound(err) {
		return err
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	admin := &domain.User{
		Name:         "DSI Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleDSIAdmin,
		Active:       true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}
	s.logger.Info("bootstrap administrator created", zap.String("user_id", admin.ID), zap.String("email", email))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) setPassword(ctx context.Context, user *domain.User, password string) error {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.NewDependencyUnavailable("user store", err)
	}
	return nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
