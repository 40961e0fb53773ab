package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/internal/models"
	"github.com/stocktrail/stocktrail/pkg/crypto"
)

const (
	// DefaultRefreshTTL is the fallback refresh token lifetime.
	DefaultRefreshTTL = 30 * 24 * time.Hour
	// DefaultRefreshTokenLength is the byte length of generated refresh tokens.
	DefaultRefreshTokenLength = 48
)

// ErrSessionNotFound indicates the session does not exist or is no longer usable.
var ErrSessionNotFound = errors.New("session service: session not found")

// SessionConfig controls session issuance.
type SessionConfig struct {
	RefreshTTL         time.Duration
	RefreshTokenLength int
	Clock              func() time.Time
}

// SessionService persists refresh sessions and issues access tokens for them.
type SessionService struct {
	db  *gorm.DB
	jwt *JWTService
	cfg SessionConfig
	now func() time.Time
}

// NewSessionService constructs a session service from its dependencies.
func NewSessionService(db *gorm.DB, jwt *JWTService, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}
	if jwt == nil {
		return nil, errors.New("session service: jwt service is required")
	}

	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.RefreshTokenLength <= 0 {
		cfg.RefreshTokenLength = DefaultRefreshTokenLength
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &SessionService{db: db, jwt: jwt, cfg: cfg, now: now}, nil
}

// IssuedSession bundles the session row with its freshly minted tokens.
type IssuedSession struct {
	Session      *models.Session
	AccessToken  string
	RefreshToken string
}

// Create opens a new session for the user and issues both tokens.
func (s *SessionService) Create(ctx context.Context, user *models.User, ipAddress, userAgent string) (*IssuedSession, error) {
	ctx = ensureContext(ctx)

	if user == nil || user.ID == "" {
		return nil, errors.New("session service: user is required")
	}

	refreshToken, err := crypto.GenerateToken(s.cfg.RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("session service: generate refresh token: %w", err)
	}

	now := s.now()
	session := models.Session{
		UserID:       user.ID,
		RefreshToken: refreshToken,
		IPAddress:    strings.TrimSpace(ipAddress),
		UserAgent:    strings.TrimSpace(userAgent),
		ExpiresAt:    now.Add(s.cfg.RefreshTTL),
		LastUsedAt:   now,
	}

	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("session service: create session: %w", err)
	}

	accessToken, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: session.ID,
	})
	if err != nil {
		return nil, err
	}

	return &IssuedSession{
		Session:      &session,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*IssuedSession, error) {
	ctx = ensureContext(ctx)

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, errors.New("session service: refresh token is required")
	}

	var session models.Session
	err := s.db.WithContext(ctx).
		Preload("User").
		First(&session, "refresh_token = ?", refreshToken).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session service: load session: %w", err)
	}

	now := s.now()
	if !session.Active(now) {
		return nil, ErrSessionNotFound
	}

	session.LastUsedAt = now
	if err := s.db.WithContext(ctx).Model(&session).Update("last_used_at", now).Error; err != nil {
		return nil, fmt.Errorf("session service: touch session: %w", err)
	}

	email := ""
	if session.User != nil {
		email = session.User.Email
	}

	accessToken, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		UserID:    session.UserID,
		Email:     email,
		SessionID: session.ID,
	})
	if err != nil {
		return nil, err
	}

	return &IssuedSession{
		Session:      &session,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Revoke marks a session unusable. Scoped to the owning user so one account
// cannot revoke another's sessions.
func (s *SessionService) Revoke(ctx context.Context, sessionID, userID string) error {
	ctx = ensureContext(ctx)

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("session service: session id is required")
	}

	now := s.now()
	result := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL", sessionID, userID).
		Update("revoked_at", now)
	if result.Error != nil {
		return fmt.Errorf("session service: revoke session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// CleanupExpired removes sessions past their expiry or already revoked.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	now := s.now()
	result := s.db.WithContext(ctx).
		Where("expires_at < ? OR revoked_at IS NOT NULL", now).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: cleanup sessions: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
