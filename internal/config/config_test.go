package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "actors", cfg.Runner.Prefix)
	assert.Equal(t, BackendMem, cfg.Checkpoint.Backend)
	assert.Equal(t, 5*time.Second, cfg.Checkpoint.Timeout)

	lvl, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestParse(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
log:
  level: debug
runner:
  prefix: node1
  actors: [a, b]
checkpoint:
  backend: nats
  timeout: 2s
  nats:
    url: nats://localhost:4222
metrics:
  enabled: false
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "node1", cfg.Runner.Prefix)
	assert.Equal(t, []string{"a", "b"}, cfg.Runner.Actors)
	assert.Equal(t, BackendNATS, cfg.Checkpoint.Backend)
	assert.Equal(t, 2*time.Second, cfg.Checkpoint.Timeout)
	assert.Equal(t, "nats://localhost:4222", cfg.Checkpoint.NATS.URL)
	assert.False(t, cfg.Metrics.Enabled)

	// untouched fields keep their defaults
	assert.Equal(t, "direct", cfg.Runner.DirectPrefix)
	assert.Equal(t, "actr_checkpoints", cfg.Checkpoint.NATS.Bucket)

	_, err = Parse(strings.NewReader(""))
	require.NoError(t, err)

	_, err = Parse(strings.NewReader("unknown: 1\n"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(env(map[string]string{
		"ACTR_LOG_LEVEL":          "warn",
		"ACTR_RUNNER_PREFIX":      "worker",
		"ACTR_RUNNER_LAZY":        "false",
		"ACTR_RUNNER_ACTORS":      "a, b,,c",
		"ACTR_RUNNER_MAX_ACTIVE":  "64",
		"ACTR_CHECKPOINT_BACKEND": "file",
		"ACTR_CHECKPOINT_DIR":     "/var/lib/actr",
		"ACTR_CHECKPOINT_TIMEOUT": "250ms",
		"ACTR_NATS_BUCKET":        "other",
		"ACTR_METRICS_ADDR":       ":9999",
	})))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "worker", cfg.Runner.Prefix)
	assert.False(t, cfg.Runner.Lazy)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Runner.Actors)
	assert.Equal(t, 64, cfg.Runner.MaxActive)
	assert.Equal(t, BackendFile, cfg.Checkpoint.Backend)
	assert.Equal(t, "/var/lib/actr", cfg.Checkpoint.Dir)
	assert.Equal(t, 250*time.Millisecond, cfg.Checkpoint.Timeout)
	assert.Equal(t, "other", cfg.Checkpoint.NATS.Bucket)
	assert.Equal(t, ":9999", cfg.Metrics.Addr)

	err := Default().ApplyEnv(env(map[string]string{
		"ACTR_RUNNER_LAZY":        "maybe",
		"ACTR_CHECKPOINT_TIMEOUT": "soon",
	}))
	require.ErrorContains(t, err, "ACTR_RUNNER_LAZY")
	require.ErrorContains(t, err, "ACTR_CHECKPOINT_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"empty prefix", func(c *Config) { c.Runner.Prefix = "" }},
		{"nested prefix", func(c *Config) { c.Runner.Prefix = "a:b" }},
		{"same prefixes", func(c *Config) { c.Runner.DirectPrefix = c.Runner.Prefix }},
		{"actor id", func(c *Config) { c.Runner.Actors = []string{"x:y"} }},
		{"max active", func(c *Config) { c.Runner.MaxActive = -1 }},
		{"max active without backend", func(c *Config) { c.Runner.MaxActive = 8; c.Checkpoint.Backend = BackendNone }},
		{"backend", func(c *Config) { c.Checkpoint.Backend = "redis" }},
		{"file dir", func(c *Config) { c.Checkpoint.Backend = BackendFile; c.Checkpoint.Dir = "" }},
		{"nats bucket", func(c *Config) { c.Checkpoint.Backend = BackendNATS; c.Checkpoint.NATS.Bucket = "" }},
		{"timeout", func(c *Config) { c.Checkpoint.Timeout = -time.Second }},
		{"metrics addr", func(c *Config) { c.Metrics.Addr = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actrd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runner:\n  prefix: fromfile\n"), 0o644))

	t.Setenv("ACTR_METRICS_ENABLED", "false")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fromfile", cfg.Runner.Prefix)
	assert.False(t, cfg.Metrics.Enabled)

	t.Setenv("ACTR_RUNNER_PREFIX", "fromenv")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.Runner.Prefix)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	t.Setenv("ACTR_CHECKPOINT_BACKEND", "redis")
	_, err = Load("")
	require.ErrorIs(t, err, ErrInvalidConfig)
}
