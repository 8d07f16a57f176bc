package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	require.Equal(t, "http://localhost:8080/api/v1", cfg.BackendURL)
	require.Equal(t, 15*time.Minute, cfg.SyncInterval)
	require.Equal(t, 5*time.Minute, cfg.CacheTTL)
	require.False(t, cfg.MeteredSync)
	require.Contains(t, cfg.DBPath(), "unimarket.db")
	require.Contains(t, cfg.SpoolPath(), "spool")
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
data_dir: /var/lib/unimarket
backend_url: https://market.uni.example/api/v1
user_id: u-42
sync_interval: 1m
cache_ttl: 30s
metered_sync: true
dashboard_port: 9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "https://market.uni.example/api/v1", cfg.BackendURL)
	require.Equal(t, "u-42", cfg.UserID)
	require.Equal(t, time.Minute, cfg.SyncInterval)
	require.Equal(t, 30*time.Second, cfg.CacheTTL)
	require.True(t, cfg.MeteredSync)
	require.Equal(t, 9090, cfg.DashboardPort)
	require.Equal(t, filepath.Join("/var/lib/unimarket", "unimarket.db"), cfg.DBPath())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("UNIMARKET_BACKEND_URL", "https://env.example/api")

	cfg, err := Load(writeConfig(t, "user_id: u-1\n"))
	require.NoError(t, err)
	require.Equal(t, "https://env.example/api", cfg.BackendURL)
}

func TestEnvOverrideWithoutDefault(t *testing.T) {
	t.Setenv("UNIMARKET_USER_ID", "env-user")
	t.Setenv("UNIMARKET_LOG_FILE", "/var/log/unimarket.log")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	require.Equal(t, "env-user", cfg.UserID)
	require.Equal(t, "/var/log/unimarket.log", cfg.LogFile)
}

func TestExplicitPathsWin(t *testing.T) {
	path := writeConfig(t, `
data_dir: /data
db_file: /elsewhere/cache.db
spool_dir: /mnt/spool
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/elsewhere/cache.db", cfg.DBPath())
	require.Equal(t, "/mnt/spool", cfg.SpoolPath())
}

func TestValidation(t *testing.T) {
	_, err := Load(writeConfig(t, "sync_interval: -5s\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "backend_url: \"\"\n"))
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
