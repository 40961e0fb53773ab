package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/internal/auth"
	"github.com/stocktrail/stocktrail/internal/database/testutil"
	"github.com/stocktrail/stocktrail/internal/models"
	"github.com/stocktrail/stocktrail/internal/services"
)

func newCleanerFixture(t *testing.T) (*Cleaner, *gorm.DB) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	jwtService, err := auth.NewJWTService(auth.JWTConfig{Secret: "secret"})
	require.NoError(t, err)
	sessions, err := auth.NewSessionService(db, jwtService, auth.SessionConfig{})
	require.NoError(t, err)

	cleaner, err := NewCleaner(audit, sessions, WithAuditRetentionDays(30))
	require.NoError(t, err)
	return cleaner, db
}

func TestRunOncePurgesAgedData(t *testing.T) {
	cleaner, db := newCleanerFixture(t)
	ctx := context.Background()

	aged := models.AuditLog{Operation: models.AuditOpInsert, TableName: "items"}
	require.NoError(t, db.Create(&aged).Error)
	require.NoError(t, db.Model(&aged).
		Update("created_at", time.Now().AddDate(0, 0, -60)).Error)

	fresh := models.AuditLog{Operation: models.AuditOpInsert, TableName: "items"}
	require.NoError(t, db.Create(&fresh).Error)

	user := models.User{Username: "u", Email: "u@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	expired := models.Session{
		UserID:       user.ID,
		RefreshToken: "tok",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(&expired).Error)

	require.NoError(t, cleaner.RunOnce(ctx))

	var auditCount, sessionCount int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&auditCount).Error)
	require.NoError(t, db.Model(&models.Session{}).Count(&sessionCount).Error)
	require.EqualValues(t, 1, auditCount)
	require.Zero(t, sessionCount)
}

func TestRunOnceCombinesErrors(t *testing.T) {
	cleaner, db := newCleanerFixture(t)

	// Both steps fail once their tables are gone, and both failures surface.
	require.NoError(t, db.Migrator().DropTable(&models.AuditLog{}))
	require.NoError(t, db.Migrator().DropTable(&models.Session{}))

	err := cleaner.RunOnce(context.Background())
	require.Error(t, err)
}

func TestCleanerOptions(t *testing.T) {
	cleaner, _ := newCleanerFixture(t)
	require.Equal(t, 30, cleaner.retentionDays)
	require.Equal(t, defaultSchedule, cleaner.schedule)

	custom, err := NewCleaner(cleaner.audit, cleaner.sessions, WithSchedule("@hourly"))
	require.NoError(t, err)
	require.Equal(t, "@hourly", custom.schedule)
	require.Equal(t, DefaultAuditRetentionDays, custom.retentionDays)
}

func TestCleanerStartStop(t *testing.T) {
	cleaner, _ := newCleanerFixture(t)

	require.NoError(t, cleaner.Start())
	require.Error(t, cleaner.Start())
	cleaner.Stop()

	// Restartable after a stop.
	require.NoError(t, cleaner.Start())
	cleaner.Stop()
}

func TestNewCleanerRequiresDeps(t *testing.T) {
	_, err := NewCleaner(nil, nil)
	require.Error(t, err)
}
