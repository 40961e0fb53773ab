package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/internal/auditctx"
	"github.com/stocktrail/stocktrail/internal/auth"
	"github.com/stocktrail/stocktrail/internal/models"
	"github.com/stocktrail/stocktrail/pkg/crypto"
	apperrors "github.com/stocktrail/stocktrail/pkg/errors"
	"github.com/stocktrail/stocktrail/pkg/metrics"
)

const (
	// DefaultMaxFailedAttempts is the failure count that triggers a lockout.
	DefaultMaxFailedAttempts = 5
	// DefaultLockoutDuration is how long a locked account stays locked.
	DefaultLockoutDuration = 15 * time.Minute
)

// AuthConfig tunes the login lockout policy.
type AuthConfig struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	Clock             func() time.Time
}

// AuthService implements the credential login flow: password verification,
// failed-attempt lockout, session issuance and authentication auditing.
type AuthService struct {
	db       *gorm.DB
	sessions *auth.SessionService
	audit    *AuditService
	cfg      AuthConfig
	now      func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, sessions *auth.SessionService, audit *AuditService, cfg AuthConfig) (*AuthService, error) {
	if db == nil {
		return nil, errors.New("auth service: db is required")
	}
	if sessions == nil {
		return nil, errors.New("auth service: session service is required")
	}
	if audit == nil {
		return nil, errors.New("auth service: audit service is required")
	}

	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = DefaultMaxFailedAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = DefaultLockoutDuration
	}
	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &AuthService{db: db, sessions: sessions, audit: audit, cfg: cfg, now: now}, nil
}

// Login verifies credentials and opens a session. Credential failures and
// lockouts both surface as 401s; the distinction is visible in metrics and
// the audit trail, not to the caller.
func (s *AuthService) Login(ctx context.Context, username, password, ipAddress, userAgent string) (*auth.IssuedSession, *models.User, error) {
	ctx = ensureContext(ctx)

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).Preload("Roles").First(&user, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("auth service: load user: %w", err)
	}

	now := s.now()
	if user.Locked(now) {
		metrics.AuthAttempts.WithLabelValues("locked").Inc()
		s.auditLoginFailure(ctx, &user, ipAddress, userAgent, "account_locked")
		return nil, nil, apperrors.ErrAccountLocked
	}
	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		s.auditLoginFailure(ctx, &user, ipAddress, userAgent, "account_inactive")
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	if !crypto.VerifyPassword(user.Password, password) {
		if err := s.registerFailure(ctx, &user, now); err != nil {
			return nil, nil, err
		}
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		s.auditLoginFailure(ctx, &user, ipAddress, userAgent, "invalid_password")
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	updates := map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   now,
		"last_login_ip":   strings.TrimSpace(ipAddress),
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, nil, fmt.Errorf("auth service: record login: %w", err)
	}

	issued, err := s.sessions.Create(ctx, &user, ipAddress, userAgent)
	if err != nil {
		return nil, nil, err
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()

	// The login request carries no token, so the actor is attached here
	// rather than by middleware.
	actorCtx := auditctx.WithActor(ctx, auditctx.Actor{
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: issued.Session.ID,
		IPAddress: strings.TrimSpace(ipAddress),
		UserAgent: strings.TrimSpace(userAgent),
	})
	recordAudit(s.audit.LogAuth(actorCtx, models.AuditOpLogin, user.ID, user.Email,
		map[string]any{"success": true}))

	return issued, &user, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.IssuedSession, error) {
	ctx = ensureContext(ctx)

	issued, err := s.sessions.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	return issued, nil
}

// Logout revokes the session and records the event.
func (s *AuthService) Logout(ctx context.Context, sessionID, userID string) error {
	ctx = ensureContext(ctx)

	if err := s.sessions.Revoke(ctx, sessionID, userID); err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			return apperrors.ErrNotFound
		}
		return err
	}

	recordAudit(s.audit.LogAuth(ctx, models.AuditOpLogout, userID, "", nil))
	return nil
}

// auditLoginFailure leaves a trail entry for a rejected login. The caller got
// no token, so the actor is attached here from the request details.
func (s *AuthService) auditLoginFailure(ctx context.Context, user *models.User, ipAddress, userAgent, reason string) {
	failureCtx := auditctx.WithActor(ctx, auditctx.Actor{
		UserID:    user.ID,
		Email:     user.Email,
		IPAddress: strings.TrimSpace(ipAddress),
		UserAgent: strings.TrimSpace(userAgent),
	})
	recordAudit(s.audit.LogAuth(failureCtx, models.AuditOpLogin, user.ID, user.Email, map[string]any{
		"success": false,
		"reason":  reason,
	}))
}

func (s *AuthService) registerFailure(ctx context.Context, user *models.User, now time.Time) error {
	attempts := user.FailedAttempts + 1
	updates := map[string]any{"failed_attempts": attempts}
	if attempts >= s.cfg.MaxFailedAttempts {
		lockedUntil := now.Add(s.cfg.LockoutDuration)
		updates["locked_until"] = lockedUntil
		updates["failed_attempts"] = 0
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("auth service: record failed attempt: %w", err)
	}
	return nil
}
