// Package config handles loading, validating, and defaulting diagsink configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Output/format constants for configuration defaults.
const (
	DefaultBaseName      = "diagnostics.out"
	DefaultMaxFileBytes  = 100_000_000
	DefaultCheckInterval = 5
	DefaultUploadTimeout = 30
	DefaultLogFormat     = "json"
	DefaultLogOutput     = "stdout"
	OutputFile           = "file"
	OutputBoth           = "both"
)

// Config is the top-level diagsink configuration.
type Config struct {
	Version int           `yaml:"version"`
	Sink    SinkConfig    `yaml:"sink"`
	Remote  RemoteConfig  `yaml:"remote"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// SinkConfig configures the rotating segment writer and its monitor.
// MaxFileBytes and CheckIntervalSeconds are hot-reloadable; the monitor
// picks up changes on its next cycle.
type SinkConfig struct {
	Dir                  string `yaml:"dir"`
	BaseName             string `yaml:"base_name"`
	MaxFileBytes         int64  `yaml:"max_file_bytes"`
	CheckIntervalSeconds int    `yaml:"check_interval_seconds"`
}

// RemoteConfig configures the object store segments are shipped to after
// the run. Endpoint selects the HTTP backend; LocalDir selects the
// filesystem backend. Leaving both empty disables uploads.
type RemoteConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Container      string `yaml:"container"`
	Prefix         string `yaml:"prefix"`
	Token          string `yaml:"token"` // optional bearer token, passed through as-is
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	LocalDir       string `yaml:"local_dir"`
}

// MetricsConfig configures the optional Prometheus/stats HTTP listener.
type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty disables the listener
}

// LoggingConfig configures operational logging.
type LoggingConfig struct {
	Format string `yaml:"format"` // json, text
	Output string `yaml:"output"` // stdout, file, both
	File   string `yaml:"file"`
}

// UploadEnabled reports whether any remote backend is configured.
func (c *Config) UploadEnabled() bool {
	return c.Remote.Endpoint != "" || c.Remote.LocalDir != ""
}

// Defaults returns a config with all defaults applied and no remote backend.
func Defaults() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads, parses, defaults, and validates a diagsink config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path from caller
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.ApplyDefaults()

	// Resolve relative sink dir relative to the config file directory.
	if cfg.Sink.Dir != "" && !filepath.IsAbs(cfg.Sink.Dir) {
		cfg.Sink.Dir = filepath.Join(filepath.Dir(path), cfg.Sink.Dir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Sink.Dir == "" {
		c.Sink.Dir = "."
	}
	if c.Sink.BaseName == "" {
		c.Sink.BaseName = DefaultBaseName
	}
	if c.Sink.MaxFileBytes <= 0 {
		c.Sink.MaxFileBytes = DefaultMaxFileBytes
	}
	if c.Sink.CheckIntervalSeconds <= 0 {
		c.Sink.CheckIntervalSeconds = DefaultCheckInterval
	}
	if c.Remote.TimeoutSeconds <= 0 {
		c.Remote.TimeoutSeconds = DefaultUploadTimeout
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = DefaultLogOutput
	}
}

// Validate checks the config for inconsistencies after defaulting.
func (c *Config) Validate() error {
	if filepath.Base(c.Sink.BaseName) != c.Sink.BaseName || c.Sink.BaseName == "." {
		return fmt.Errorf("sink.base_name %q must be a bare file name", c.Sink.BaseName)
	}
	if c.Remote.Endpoint != "" && c.Remote.LocalDir != "" {
		return fmt.Errorf("remote.endpoint and remote.local_dir are mutually exclusive")
	}
	if c.Remote.Endpoint != "" && c.Remote.Container == "" {
		return fmt.Errorf("remote.container is required when remote.endpoint is set")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format %q: must be json or text", c.Logging.Format)
	}
	switch c.Logging.Output {
	case "stdout", OutputFile, OutputBoth:
	default:
		return fmt.Errorf("logging.output %q: must be stdout, file, or both", c.Logging.Output)
	}
	if (c.Logging.Output == OutputFile || c.Logging.Output == OutputBoth) && c.Logging.File == "" {
		return fmt.Errorf("logging.file is required when logging.output is %s", c.Logging.Output)
	}
	return nil
}
