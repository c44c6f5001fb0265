package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps the test independent of the caller's environment and cwd.
func isolate(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix) {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 0.6, cfg.Matching.Cutoff)
	assert.Equal(t, int64(3), cfg.Demand.Threshold)
	assert.False(t, cfg.Demand.OnCrossingOnly)
	assert.Equal(t, 10, cfg.Ranking.TopN)
	assert.Equal(t, 10, cfg.Ranking.PoolSize)
	assert.Equal(t, 3, cfg.Ranking.ResultSize)
	assert.Equal(t, "memory", cfg.Delivery.Store)
	assert.Equal(t, 48*time.Hour, cfg.Delivery.TokenTTL)
	assert.Equal(t, DevJWTSecret, cfg.Auth.JWTSecret)
}

func TestLoad_FileThenEnv(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "moviehub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
demand:
  threshold: 5
  on_crossing_only: true
delivery:
  token_ttl: 2h
logging:
  level: debug
`), 0o600))
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("MOVIEHUB_DEMAND_THRESHOLD", "7")
	t.Setenv("MOVIEHUB_DB_PATH", "/tmp/x.db")
	t.Setenv("MOVIEHUB_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr, "file overrides default")
	assert.Equal(t, int64(7), cfg.Demand.Threshold, "env overrides file")
	assert.True(t, cfg.Demand.OnCrossingOnly)
	assert.Equal(t, 2*time.Hour, cfg.Delivery.TokenTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"cutoff out of range": {"MOVIEHUB_MATCH_CUTOFF": "1.5"},
		"bad store":           {"MOVIEHUB_DELIVERY_STORE": "redis"},
		"short secret":        {"MOVIEHUB_JWT_SECRET": "short"},
		"gate without url":    {"MOVIEHUB_GATE_ENABLED": "true"},
		"badger without dir":  {"MOVIEHUB_DELIVERY_STORE": "badger"},
		"bad log level":       {"MOVIEHUB_LOG_LEVEL": "loud"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLogConfig_Logging(t *testing.T) {
	lc := LogConfig{Level: "warn", Format: "console", Caller: true}.Logging()
	assert.Equal(t, "warn", lc.Level)
	assert.Equal(t, "console", lc.Format)
	assert.True(t, lc.Caller)
	assert.NotNil(t, lc.Output)
}
