package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/internal/auth"
	"github.com/stocktrail/stocktrail/internal/database/testutil"
	"github.com/stocktrail/stocktrail/internal/models"
	apperrors "github.com/stocktrail/stocktrail/pkg/errors"
)

type authFixture struct {
	db    *gorm.DB
	auth  *AuthService
	audit *AuditService
	users *UserService
	clock *fakeClock
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}

	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		Secret: "test-secret",
		Issuer: "stocktrail-test",
		Clock:  clock.Now,
	})
	require.NoError(t, err)
	sessions, err := auth.NewSessionService(db, jwtService, auth.SessionConfig{Clock: clock.Now})
	require.NoError(t, err)
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	authService, err := NewAuthService(db, sessions, audit, AuthConfig{
		MaxFailedAttempts: 3,
		LockoutDuration:   10 * time.Minute,
		Clock:             clock.Now,
	})
	require.NoError(t, err)
	users, err := NewUserService(db)
	require.NoError(t, err)

	return &authFixture{db: db, auth: authService, audit: audit, users: users, clock: clock}
}

func (f *authFixture) seedUser(t *testing.T) *models.User {
	t.Helper()
	user, err := f.users.Create(context.Background(), UserCreateInput{
		Username: "operator",
		Email:    "operator@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return user
}

func TestLoginSuccessIssuesSessionAndAudits(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t)
	ctx := context.Background()

	issued, loggedIn, err := f.auth.Login(ctx, "operator", "correct-horse", "10.0.0.9", "cli")
	require.NoError(t, err)
	require.NotEmpty(t, issued.AccessToken)
	require.NotEmpty(t, issued.RefreshToken)
	require.Equal(t, user.ID, loggedIn.ID)

	logs, _, err := f.audit.List(ctx, AuditListOptions{
		Filters: AuditFilters{Operation: models.AuditOpLogin},
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "users", logs[0].TableName)
	require.Equal(t, user.ID, logs[0].RecordID)
	require.Equal(t, "10.0.0.9", logs[0].IPAddress)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t)

	_, _, err := f.auth.Login(context.Background(), "operator", "wrong", "", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLoginFailureIsAudited(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t)
	ctx := context.Background()

	_, _, err := f.auth.Login(ctx, "operator", "wrong", "10.0.0.7", "cli")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	logs, total, err := f.audit.List(ctx, AuditListOptions{
		Filters: AuditFilters{Operation: models.AuditOpLogin},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, user.ID, logs[0].RecordID)
	require.Equal(t, "10.0.0.7", logs[0].IPAddress)
	require.Equal(t, false, logs[0].Metadata["success"])
	require.Equal(t, "invalid_password", logs[0].Metadata["reason"])
}

func TestLoginWhileLockedIsAudited(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := f.auth.Login(ctx, "operator", "wrong", "", "")
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}
	_, _, err := f.auth.Login(ctx, "operator", "correct-horse", "", "")
	require.ErrorIs(t, err, apperrors.ErrAccountLocked)

	logs, _, err := f.audit.List(ctx, AuditListOptions{
		Filters: AuditFilters{Operation: models.AuditOpLogin},
	})
	require.NoError(t, err)
	require.Len(t, logs, 4)
	// Newest first: the locked attempt tops the trail.
	require.Equal(t, "account_locked", logs[0].Metadata["reason"])
}

func TestLoginUnknownUser(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.auth.Login(context.Background(), "ghost", "whatever", "", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := f.auth.Login(ctx, "operator", "wrong", "", "")
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}

	// Locked accounts reject even the correct password.
	_, _, err := f.auth.Login(ctx, "operator", "correct-horse", "", "")
	require.ErrorIs(t, err, apperrors.ErrAccountLocked)

	// The lockout expires with time.
	f.clock.Advance(11 * time.Minute)
	_, _, err = f.auth.Login(ctx, "operator", "correct-horse", "", "")
	require.NoError(t, err)
}

func TestLoginSuccessResetsFailureCount(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t)
	ctx := context.Background()

	_, _, err := f.auth.Login(ctx, "operator", "wrong", "", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, _, err = f.auth.Login(ctx, "operator", "correct-horse", "", "")
	require.NoError(t, err)

	var reloaded models.User
	require.NoError(t, f.db.First(&reloaded, "id = ?", user.ID).Error)
	require.Zero(t, reloaded.FailedAttempts)
	require.Nil(t, reloaded.LockedUntil)
	require.NotNil(t, reloaded.LastLoginAt)
}

func TestLoginInactiveUser(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t)
	inactive := false
	_, err := f.users.Update(context.Background(), user.ID, UserUpdateInput{IsActive: &inactive})
	require.NoError(t, err)

	_, _, err = f.auth.Login(context.Background(), "operator", "correct-horse", "", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestRefreshAndLogout(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t)
	ctx := context.Background()

	issued, _, err := f.auth.Login(ctx, "operator", "correct-horse", "", "")
	require.NoError(t, err)

	refreshed, err := f.auth.Refresh(ctx, issued.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)

	require.NoError(t, f.auth.Logout(ctx, issued.Session.ID, user.ID))

	// Revoked sessions cannot refresh.
	_, err = f.auth.Refresh(ctx, issued.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	logs, _, err := f.audit.List(ctx, AuditListOptions{
		Filters: AuditFilters{Operation: models.AuditOpLogout},
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
}

func TestRefreshUnknownToken(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auth.Refresh(context.Background(), "bogus")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
