package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/internal/database/testutil"
	"github.com/stocktrail/stocktrail/internal/models"
)

type sessionFixture struct {
	db       *gorm.DB
	sessions *SessionService
	user     *models.User
	now      time.Time
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	f := &sessionFixture{
		db:  db,
		now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	jwtService, err := NewJWTService(JWTConfig{Secret: "secret", Clock: func() time.Time { return f.now }})
	require.NoError(t, err)
	f.sessions, err = NewSessionService(db, jwtService, SessionConfig{
		RefreshTTL: time.Hour,
		Clock:      func() time.Time { return f.now },
	})
	require.NoError(t, err)

	user := models.User{
		Username: "operator",
		Email:    "operator@example.com",
		Password: "irrelevant",
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	f.user = &user
	return f
}

func TestSessionCreateIssuesTokens(t *testing.T) {
	f := newSessionFixture(t)

	issued, err := f.sessions.Create(context.Background(), f.user, "10.0.0.1", "cli")
	require.NoError(t, err)
	require.NotEmpty(t, issued.AccessToken)
	require.NotEmpty(t, issued.RefreshToken)
	require.Equal(t, f.user.ID, issued.Session.UserID)
	require.Equal(t, f.now.Add(time.Hour), issued.Session.ExpiresAt)
}

func TestSessionRefresh(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	issued, err := f.sessions.Create(ctx, f.user, "", "")
	require.NoError(t, err)

	f.now = f.now.Add(10 * time.Minute)
	refreshed, err := f.sessions.Refresh(ctx, issued.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, issued.Session.ID, refreshed.Session.ID)
	require.Equal(t, f.now, refreshed.Session.LastUsedAt)
}

func TestSessionRefreshExpired(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	issued, err := f.sessions.Create(ctx, f.user, "", "")
	require.NoError(t, err)

	f.now = f.now.Add(2 * time.Hour)
	_, err = f.sessions.Refresh(ctx, issued.RefreshToken)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRefreshUnknownToken(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.sessions.Refresh(context.Background(), "bogus")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRevokeScopedToOwner(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	issued, err := f.sessions.Create(ctx, f.user, "", "")
	require.NoError(t, err)

	// A different user cannot revoke this session.
	err = f.sessions.Revoke(ctx, issued.Session.ID, "someone-else")
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, f.sessions.Revoke(ctx, issued.Session.ID, f.user.ID))

	// Revoking twice reports not found.
	err = f.sessions.Revoke(ctx, issued.Session.ID, f.user.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.sessions.Refresh(ctx, issued.RefreshToken)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionCleanupExpired(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	expired, err := f.sessions.Create(ctx, f.user, "", "")
	require.NoError(t, err)
	require.NoError(t, f.sessions.Revoke(ctx, expired.Session.ID, f.user.ID))

	f.now = f.now.Add(time.Minute)
	active, err := f.sessions.Create(ctx, f.user, "", "")
	require.NoError(t, err)

	removed, err := f.sessions.CleanupExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var remaining []models.Session
	require.NoError(t, f.db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, active.Session.ID, remaining[0].ID)
}
