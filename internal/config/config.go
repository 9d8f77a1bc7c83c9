// Package config provides configuration management for the cleaning pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"telemetry-pipeline/pkg/utils"
)

// Configuration validation errors.
var (
	ErrInvalidInterval    = errors.New("pipeline.resample_interval_sec must be at least 1")
	ErrMissingSeparator   = errors.New("pipeline.entity_separator is required")
	ErrInvalidRuleBounds  = errors.New("range rule low bound exceeds high bound")
	ErrMissingRuleToken   = errors.New("range rule token is required")
	ErrInvalidBackend     = errors.New("storage.backend must be 'local' or 's3'")
	ErrMissingDestination = errors.New("storage.destination is required")
	ErrMissingLocalRoot   = errors.New("storage.local_root is required for the local backend")
	ErrMissingRegion      = errors.New("storage.s3.region is required for the s3 backend")
	ErrPartialCredentials = errors.New("storage.s3.access_key and secret_key must be set together")
	ErrInvalidLogLevel    = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat   = errors.New("logging.format must be 'text' or 'json'")
	ErrMissingServerAddr  = errors.New("server.addr is required")
	ErrInvalidRunTimeout  = errors.New("server.run_timeout must be a valid duration")
)

// Storage backends
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

const defaultRunTimeout = 5 * time.Minute

// Config represents the complete pipeline configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Storage  StorageConfig  `yaml:"storage"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PipelineConfig controls cleaning, resampling and partitioning.
type PipelineConfig struct {
	ResampleIntervalSec int         `yaml:"resample_interval_sec"`
	EntitySeparator     string      `yaml:"entity_separator"`
	OutputPrefix        string      `yaml:"output_prefix"`
	TimestampToken      string      `yaml:"timestamp_token"`
	Rules               []RangeRule `yaml:"rules"`
}

// RangeRule binds a column-name token to inclusive bounds.
type RangeRule struct {
	Name  string  `yaml:"name"`
	Token string  `yaml:"token"`
	Low   float64 `yaml:"low"`
	High  float64 `yaml:"high"`
}

// StorageConfig defines where inputs are read from and artifacts written to.
type StorageConfig struct {
	Backend     string   `yaml:"backend"`
	LocalRoot   string   `yaml:"local_root"`
	Destination string   `yaml:"destination"`
	S3          S3Config `yaml:"s3"`
}

// S3Config is passed explicitly to the S3 session factory.
type S3Config struct {
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	SessionToken   string `yaml:"session_token"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

// LedgerConfig points at the sqlite run ledger. An empty path disables it.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig defines the HTTP API.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	RunTimeout string `yaml:"run_timeout"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			ResampleIntervalSec: 10,
			EntitySeparator:     "_",
			TimestampToken:      "Timestamp",
			Rules:               DefaultRules(),
		},
		Storage: StorageConfig{
			Backend:     BackendLocal,
			LocalRoot:   "./data",
			Destination: "new-parquet-files",
		},
		Ledger: LedgerConfig{
			Path: "pipeline.db",
		},
		Server: ServerConfig{
			Addr:       ":8080",
			RunTimeout: "5m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultRules returns the built-in range rules in evaluation order.
func DefaultRules() []RangeRule {
	return []RangeRule{
		{Name: "ground_speed", Token: "speed_over_ground", Low: 0, High: 100},
		{Name: "longitude", Token: "Longitude", Low: -180, High: 180},
		{Name: "latitude", Token: "Latitude", Low: -90, High: 90},
		{Name: "fuel_rate", Token: "engine_fuel_rate", Low: 0, High: 100},
	}
}

// LoadConfig loads configuration from YAML file on top of the defaults.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Pipeline.ResampleIntervalSec < 1 {
		return ErrInvalidInterval
	}

	if c.Pipeline.EntitySeparator == "" {
		return ErrMissingSeparator
	}

	for i, rule := range c.Pipeline.Rules {
		if rule.Token == "" {
			return fmt.Errorf("%w: rules[%d]", ErrMissingRuleToken, i)
		}
		if rule.Low > rule.High {
			return fmt.Errorf("%w: rules[%d] (%s)", ErrInvalidRuleBounds, i, rule.Token)
		}
	}

	switch c.Storage.Backend {
	case BackendLocal:
		if c.Storage.LocalRoot == "" {
			return ErrMissingLocalRoot
		}
	case BackendS3:
		if c.Storage.S3.Region == "" {
			return ErrMissingRegion
		}
		if (c.Storage.S3.AccessKey == "") != (c.Storage.S3.SecretKey == "") {
			return ErrPartialCredentials
		}
	default:
		return ErrInvalidBackend
	}

	if c.Storage.Destination == "" {
		return ErrMissingDestination
	}

	if c.Server.Addr == "" {
		return ErrMissingServerAddr
	}

	if c.Server.RunTimeout != "" {
		if _, err := time.ParseDuration(c.Server.RunTimeout); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRunTimeout, err)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// ResampleInterval returns the resample grid width.
func (p PipelineConfig) ResampleInterval() time.Duration {
	return time.Duration(p.ResampleIntervalSec) * time.Second
}

// RunTimeoutDuration returns the per-run budget for API triggered runs.
func (s ServerConfig) RunTimeoutDuration() time.Duration {
	d := utils.ParseDuration(s.RunTimeout, defaultRunTimeout)
	if d <= 0 {
		return defaultRunTimeout
	}
	return d
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Backend: %s, Destination: %s, Interval: %ds, Rules: %d}",
		c.Storage.Backend,
		c.Storage.Destination,
		c.Pipeline.ResampleIntervalSec,
		len(c.Pipeline.Rules),
	)
}
