package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STOCKTRAIL_AUTH_JWT_SECRET", "test-secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing-on-purpose.yaml"))
	require.Error(t, err)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	require.Equal(t, 90, cfg.Maintenance.AuditRetentionDays)
	require.True(t, cfg.Monitoring.EnableMetrics)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("STOCKTRAIL_AUTH_JWT_SECRET", "")

	_, err := LoadConfig("")
	require.Error(t, err)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("STOCKTRAIL_AUTH_JWT_SECRET", "test-secret")

	path := filepath.Join(t.TempDir(), "stocktrail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
auth:
  access_token_ttl: 5m
maintenance:
  audit_retention_days: 14
logging:
  encoding: json
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
	require.Equal(t, 14, cfg.Maintenance.AuditRetentionDays)
	require.Equal(t, "json", cfg.Logging.Encoding)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("STOCKTRAIL_AUTH_JWT_SECRET", "test-secret")
	t.Setenv("STOCKTRAIL_SERVER_PORT", "7070")
	t.Setenv("STOCKTRAIL_MAINTENANCE_AUDIT_RETENTION_DAYS", "7")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, 7, cfg.Maintenance.AuditRetentionDays)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("STOCKTRAIL_AUTH_JWT_SECRET", "test-secret")
	t.Setenv("STOCKTRAIL_SERVER_PORT", "99999")

	_, err := LoadConfig("")
	require.Error(t, err)
}
