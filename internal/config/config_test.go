package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, ":9090", cfg.GRPC.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 30*time.Second, cfg.NDVI.Timeout)
	assert.Equal(t, 3, cfg.NDVI.MaxAttempts)
	assert.Equal(t, 400*time.Millisecond, cfg.NDVI.Backoff)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, time.Duration(0), cfg.Cache.TTL)
	assert.Equal(t, "farmcarbon:snapshot", cfg.Cache.Redis.Prefix)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "@every 6h", cfg.Scheduler.Spec)
	assert.Empty(t, cfg.Scheduler.Farmers)
	assert.Empty(t, cfg.CalibrationFile)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "farmcarbon.yaml", `
http:
  addr: ":18080"
log:
  level: debug
  format: console
ndvi:
  base_url: https://satellitefarm.example.com
  timeout: 10s
  max_attempts: 5
  backoff: 250ms
cache:
  backend: redis
  ttl: 24h
  redis:
    addr: redis:6379
    prefix: test:snap
scheduler:
  enabled: true
  spec: "0 */2 * * *"
  farmers: [f1, f2]
calibration_file: /etc/farmcarbon/calibration.yaml
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":18080", cfg.HTTP.Addr)
	assert.Equal(t, ":9090", cfg.GRPC.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "https://satellitefarm.example.com", cfg.NDVI.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.NDVI.Timeout)
	assert.Equal(t, 5, cfg.NDVI.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.NDVI.Backoff)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, "test:snap", cfg.Cache.Redis.Prefix)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "0 */2 * * *", cfg.Scheduler.Spec)
	assert.Equal(t, []string{"f1", "f2"}, cfg.Scheduler.Farmers)
	assert.Equal(t, "/etc/farmcarbon/calibration.yaml", cfg.CalibrationFile)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "farmcarbon.yaml", "http:\n  addr: \":18080\"\n")

	t.Setenv("FARMCARBON_HTTP_ADDR", ":28080")
	t.Setenv("FARMCARBON_NDVI_BASE_URL", "http://ndvi.internal")
	t.Setenv("FARMCARBON_NDVI_BACKOFF", "1s")
	t.Setenv("FARMCARBON_CACHE_REDIS_PREFIX", "env:snap")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":28080", cfg.HTTP.Addr)
	assert.Equal(t, "http://ndvi.internal", cfg.NDVI.BaseURL)
	assert.Equal(t, time.Second, cfg.NDVI.Backoff)
	assert.Equal(t, "env:snap", cfg.Cache.Redis.Prefix)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"bad backend", "cache:\n  backend: memcached\n", "cache.backend"},
		{"zero attempts", "ndvi:\n  max_attempts: 0\n", "ndvi.max_attempts"},
		{"negative ttl", "cache:\n  ttl: -1s\n", "cache.ttl"},
		{"redis without addr", "cache:\n  backend: redis\n  redis:\n    addr: \"\"\n", "cache.redis.addr"},
		{"scheduler without url", "scheduler:\n  enabled: true\n", "ndvi.base_url"},
		{"malformed yaml", "http: [unclosed\n", "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "farmcarbon.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
