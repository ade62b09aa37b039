package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, "log", cfg.Notification.Provider)
	assert.Equal(t, 5, cfg.Notification.MaxAttempts)
	assert.False(t, cfg.Storage.Configured())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("NOTIFY_EMAIL_PROVIDER", "SMTP")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("AUTH_BCRYPT_COST", "not-a-number")
	t.Setenv("SLA_TIMEZONE", "Europe/Madrid")
	t.Setenv("LOG_OUTPUT_PATHS", "stdout, /var/log/helpdesk.log")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "smtp", cfg.Notification.Provider)
	assert.False(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, []string{"stdout", "/var/log/helpdesk.log"}, cfg.Logger.OutputPaths)

	loc, err := cfg.SLA.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Madrid", loc.String())
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "x")
	_, err := Load()
	assert.Error(t, err)
}

func TestTimeoutsFallBack(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
	assert.Equal(t, 5*time.Second, NotificationConfig{}.PollTimeout())
	assert.Equal(t, 15*time.Minute, StorageConfig{}.URLTTL())
}
