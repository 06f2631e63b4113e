package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prostock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "prostock.db", cfg.Database.Path)
	assert.Equal(t, "admin", cfg.Auth.AdminUser)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9000"
  rate_limit_per_sec: 5
  rate_limit_burst: 10
database:
  path: /var/lib/prostock/stock.db
auth:
  token_ttl_minutes: 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 5.0, cfg.Server.RateLimitPerSec)
	assert.Equal(t, 10, cfg.Server.RateLimitBurst)
	assert.Equal(t, "/var/lib/prostock/stock.db", cfg.Database.Path)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "admin", cfg.Auth.AdminUser, "unset keys keep their default")
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  port: 80\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "database:\n  path: from-file.db\n")
	t.Setenv("PROSTOCK_DB", "from-env.db")
	t.Setenv("PROSTOCK_ADDR", ":7070")
	t.Setenv("PROSTOCK_ADMIN_USER", "root")
	t.Setenv("PROSTOCK_RATE_LIMIT", "2.5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env.db", cfg.Database.Path)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "root", cfg.Auth.AdminUser)
	assert.Equal(t, 2.5, cfg.Server.RateLimitPerSec)
}

func TestBadRateLimitEnv(t *testing.T) {
	t.Setenv("PROSTOCK_RATE_LIMIT", "fast")
	_, err := Load("")
	assert.Error(t, err)
}
