// Package config loads the daemon configuration from YAML and environment
// variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mmehali/actors/core/shuttle"
)

const EnvPrefix = "ACTR"

var ErrInvalidConfig = errors.New("invalid config")

// Checkpoint backends.
const (
	BackendNone = "none"
	BackendMem  = "mem"
	BackendFile = "file"
	BackendNATS = "nats"
)

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Runner     RunnerConfig     `yaml:"runner"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn or error
}

type RunnerConfig struct {
	Prefix       string `yaml:"prefix"`
	DirectPrefix string `yaml:"direct_prefix"`
	// Actors are started at boot unless restored from a checkpoint.
	Actors []string `yaml:"actors"`
	// Lazy creates actors the first time a message addresses them.
	Lazy bool `yaml:"lazy"`
	// MaxActive bounds the actors held in memory, 0 means unbounded.
	MaxActive int `yaml:"max_active"`
}

type CheckpointConfig struct {
	Backend   string        `yaml:"backend"`
	Dir       string        `yaml:"dir"`
	KeyPrefix string        `yaml:"key_prefix"`
	Timeout   time.Duration `yaml:"timeout"`
	NATS      NATSConfig    `yaml:"nats"`
}

type NATSConfig struct {
	URL      string `yaml:"url"`
	Bucket   string `yaml:"bucket"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Runner: RunnerConfig{
			Prefix:       "actors",
			DirectPrefix: "direct",
			Lazy:         true,
		},
		Checkpoint: CheckpointConfig{
			Backend:   BackendMem,
			Dir:       "./data/checkpoints",
			KeyPrefix: "cp",
			Timeout:   5 * time.Second,
			NATS: NATSConfig{
				Bucket: "actr_checkpoints",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
	}
}

// Load reads path (when not empty) over the defaults, applies ACTR_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := decode(bytes.NewReader(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without looking at the environment.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decode(r, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from ACTR_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + "_" + name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + "_" + name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s_%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("LOG_LEVEL", &c.Log.Level)

	str("RUNNER_PREFIX", &c.Runner.Prefix)
	str("RUNNER_DIRECT_PREFIX", &c.Runner.DirectPrefix)
	boolean("RUNNER_LAZY", &c.Runner.Lazy)
	if v, ok := lookup(EnvPrefix + "_RUNNER_ACTORS"); ok && v != "" {
		c.Runner.Actors = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "_RUNNER_MAX_ACTIVE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s_RUNNER_MAX_ACTIVE: %w", EnvPrefix, err))
		} else {
			c.Runner.MaxActive = n
		}
	}

	str("CHECKPOINT_BACKEND", &c.Checkpoint.Backend)
	str("CHECKPOINT_DIR", &c.Checkpoint.Dir)
	str("CHECKPOINT_KEY_PREFIX", &c.Checkpoint.KeyPrefix)
	if v, ok := lookup(EnvPrefix + "_CHECKPOINT_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s_CHECKPOINT_TIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Checkpoint.Timeout = d
		}
	}

	str("NATS_URL", &c.Checkpoint.NATS.URL)
	str("NATS_BUCKET", &c.Checkpoint.NATS.Bucket)

	boolean("METRICS_ENABLED", &c.Metrics.Enabled)
	str("METRICS_ADDR", &c.Metrics.Addr)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		invalid("log.level: %v", err)
	}

	if !validSegment(c.Runner.Prefix) {
		invalid("runner.prefix %q must be a single non-empty address segment", c.Runner.Prefix)
	}
	if !validSegment(c.Runner.DirectPrefix) {
		invalid("runner.direct_prefix %q must be a single non-empty address segment", c.Runner.DirectPrefix)
	}
	if c.Runner.Prefix == c.Runner.DirectPrefix {
		invalid("runner.prefix and runner.direct_prefix must differ")
	}
	for _, id := range c.Runner.Actors {
		if !validSegment(id) {
			invalid("runner.actors: %q is not a valid actor id", id)
		}
	}

	if c.Runner.MaxActive < 0 {
		invalid("runner.max_active must not be negative")
	}
	if c.Runner.MaxActive > 0 && c.Checkpoint.Backend == BackendNone {
		invalid("runner.max_active needs a checkpoint backend")
	}

	switch c.Checkpoint.Backend {
	case BackendNone, BackendMem:
	case BackendFile:
		if c.Checkpoint.Dir == "" {
			invalid("checkpoint.dir is required for the file backend")
		}
	case BackendNATS:
		if c.Checkpoint.NATS.Bucket == "" {
			invalid("checkpoint.nats.bucket is required for the nats backend")
		}
	default:
		invalid("checkpoint.backend %q is not one of none, mem, file, nats", c.Checkpoint.Backend)
	}
	if c.Checkpoint.Timeout < 0 {
		invalid("checkpoint.timeout must not be negative")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		invalid("metrics.addr is required when metrics are enabled")
	}

	return errors.Join(errs...)
}

func validSegment(s string) bool {
	_, err := shuttle.Of(s)
	return s != "" && err == nil
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(l.Level))
	return lvl, err
}
