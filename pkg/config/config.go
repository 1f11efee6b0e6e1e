// Package config loads the paramsnap configuration file. Every field has a
// default, so a missing file is not an error; environment variables
// override file values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/paramsnap/pkg/logging"
	"github.com/ormasoftchile/paramsnap/pkg/restore"
	"github.com/ormasoftchile/paramsnap/pkg/snapshot"
	"github.com/ormasoftchile/paramsnap/pkg/storage"
)

// Environment variables read by ApplyEnv.
const (
	EnvLogLevel  = "PARAMSNAP_LOG_LEVEL"
	EnvLogFormat = "PARAMSNAP_LOG_FORMAT"
	EnvStorage   = "PARAMSNAP_STORAGE"
	EnvRedisURL  = "PARAMSNAP_REDIS_URL"
	EnvRange     = "PARAMSNAP_RANGE"
	EnvTrace     = "PARAMSNAP_TRACE"
)

// Config is the top-level configuration document.
type Config struct {
	Log        logging.Options  `yaml:"log"`
	Storage    storage.Options  `yaml:"storage"`
	Restore    RestoreConfig    `yaml:"restore"`
	Validation ValidationConfig `yaml:"validation"`
	Trace      TraceConfig      `yaml:"trace"`
}

// RestoreConfig configures restore passes. Range names a preset; Min and
// Max, when both set, override it.
type RestoreConfig struct {
	Mode       string         `yaml:"mode"`
	Range      string         `yaml:"range"`
	Min        *int           `yaml:"min,omitempty"`
	Max        *int           `yaml:"max,omitempty"`
	DelayTicks int            `yaml:"delay_ticks"`
	ValueName  string         `yaml:"value_name,omitempty"`
	Layout     restore.Layout `yaml:"layout"`
}

// ValidationConfig holds extra snapshot rules applied on load.
type ValidationConfig struct {
	Rules []snapshot.Rule `yaml:"rules,omitempty"`
}

// TraceConfig enables the JSONL audit trail when Path is set.
type TraceConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:     logging.DefaultOptions(),
		Storage: storage.Options{Backend: storage.BackendFile, RedisPrefix: "paramsnap:"},
		Restore: RestoreConfig{
			Mode:       string(restore.ModeBanks),
			Range:      "symmetric",
			DelayTicks: restore.DefaultOptions().DelayTicks,
			Layout:     restore.DefaultLayout(),
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Parse decodes data over the defaults without consulting the environment.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from the environment through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvLogLevel, &c.Log.Level)
	set(EnvLogFormat, &c.Log.Format)
	set(EnvStorage, &c.Storage.Backend)
	set(EnvRedisURL, &c.Storage.RedisURL)
	set(EnvRange, &c.Restore.Range)
	set(EnvTrace, &c.Trace.Path)
}

// Validate rejects unknown backends, modes and range presets, and empty ranges.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case "", storage.BackendFile:
	case storage.BackendRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage: redis backend requires redis_url")
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}
	if (c.Restore.Min == nil) != (c.Restore.Max == nil) {
		return fmt.Errorf("restore: min and max must be set together")
	}
	opts, err := c.RestoreOptions()
	if err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	for i, r := range c.Validation.Rules {
		if r.Expr == "" {
			return fmt.Errorf("validation.rules[%d]: empty expr", i)
		}
		switch r.Severity {
		case "", snapshot.SeverityError, snapshot.SeverityWarning:
		default:
			return fmt.Errorf("validation.rules[%d]: unknown severity %q", i, r.Severity)
		}
	}
	return nil
}

// RestoreOptions converts the restore section into restore.Options.
func (c *Config) RestoreOptions() (restore.Options, error) {
	opts := restore.DefaultOptions()
	if c.Restore.Mode != "" {
		opts.Mode = restore.Mode(c.Restore.Mode)
	}
	if c.Restore.Range != "" {
		r, err := restore.RangePreset(c.Restore.Range)
		if err != nil {
			return opts, fmt.Errorf("restore: %w", err)
		}
		opts.Range = r
	}
	if c.Restore.Min != nil && c.Restore.Max != nil {
		opts.Range = restore.Range{Min: *c.Restore.Min, Max: *c.Restore.Max}
	}
	opts.DelayTicks = c.Restore.DelayTicks
	opts.ValueName = c.Restore.ValueName
	opts.Layout = c.Restore.Layout
	opts.Rules = c.Validation.Rules
	return opts, nil
}
