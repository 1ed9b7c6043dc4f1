package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gomirror/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfigFile(t, "{}\n"))

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "./data", cfg.Mirror.StorageRoot)
	assert.Equal(t, 2, cfg.Mirror.Concurrency)
	assert.Equal(t, 500*time.Millisecond, cfg.Mirror.PacingDelay)
	assert.Equal(t, 3, cfg.Mirror.RetryAttempts)
	assert.Equal(t, time.Second, cfg.Mirror.RetryDelay)
	assert.Equal(t, int64(2*1024*1024), cfg.Mirror.QuotaEstimateBytes)
	assert.Contains(t, cfg.Mirror.AllowedHosts, "mmbiz.qpic.cn")
	assert.NotEmpty(t, cfg.Mirror.SessionExpiredMarkers)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.False(t, cfg.Schedule.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := config.Load(writeConfigFile(t, `
server:
  address: ":9090"
mirror:
  storage_root: /var/lib/gomirror
  allowed_hosts:
    - img.example.com
  concurrency: 3
  pacing_delay: 250ms
schedule:
  enabled: true
  sources:
    - account_id: acct-1
      source_key: daily-digest
      url_file: /etc/gomirror/daily.txt
      cron: "0 6 * * *"
`))

	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "/var/lib/gomirror", cfg.Mirror.StorageRoot)
	assert.Equal(t, []string{"img.example.com"}, cfg.Mirror.AllowedHosts)
	assert.Equal(t, 250*time.Millisecond, cfg.Mirror.PacingDelay)

	require.Len(t, cfg.Schedule.Sources, 1)
	assert.Equal(t, "acct-1", cfg.Schedule.Sources[0].AccountID)
	assert.Equal(t, "0 6 * * *", cfg.Schedule.Sources[0].Cron)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	_, err := config.Load(writeConfigFile(t, `
mirror:
  retry_attempts: 0
`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry_attempts")
}

func TestValidateScheduleSources(t *testing.T) {
	_, err := config.Load(writeConfigFile(t, `
schedule:
  enabled: true
  sources:
    - account_id: acct-1
      url_file: /etc/gomirror/daily.txt
`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule.sources[0]")
}

func TestDatabaseDSN(t *testing.T) {
	dbCfg := config.DatabaseConfig{
		Host:     "db.internal",
		Port:     "5433",
		User:     "mirror",
		Password: "secret",
		DBName:   "articles",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=mirror password=secret dbname=articles sslmode=require",
		dbCfg.DSN(),
	)
}
