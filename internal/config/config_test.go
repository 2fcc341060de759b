package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
	assert.Equal(t, "casino-engine.db", cfg.Store.Path)
	assert.Equal(t, uint64(1_000_000), cfg.Scan.MaxCount)
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("AUDIT_DB", "/tmp/audit.db")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: 0.0.0.0:9090
  request_timeout: 5s
store:
  path: ${AUDIT_DB}
log:
  level: debug
scan:
  hit_limit: 50
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/tmp/audit.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Scan.HitLimit)
}

func TestEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CASINO_HTTP_ADDR", ":7000")
	t.Setenv("CASINO_DB_PATH", "")
	t.Setenv("CASINO_SCAN_WORKERS", "3")
	t.Setenv("CASINO_SCAN_TIMEOUT", "2s")
	t.Setenv("CASINO_SCAN_MAX_COUNT", "500")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Empty(t, cfg.Store.Path)
	assert.Equal(t, 3, cfg.Scan.Workers)
	assert.Equal(t, 2*time.Second, cfg.Scan.Timeout)
	assert.Equal(t, uint64(500), cfg.Scan.MaxCount)
}

func TestDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CASINO_LOG_LEVEL=warn\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CASINO_LOG_LEVEL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestApplyEnvErrors(t *testing.T) {
	cfg := Default()
	lookup := func(key string) (string, bool) {
		if key == "CASINO_SCAN_WORKERS" {
			return "many", true
		}
		return "", false
	}
	assert.Error(t, cfg.ApplyEnv(lookup))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }},
		{"zero max count", func(c *Config) { c.Scan.MaxCount = 0 }},
		{"zero hit limit", func(c *Config) { c.Scan.HitLimit = 0 }},
		{"negative workers", func(c *Config) { c.Scan.Workers = -1 }},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
