package config

import (
	"time"
)

// Config represents the complete application configuration
type Config struct {
	// Log configuration
	Log LogConfig `yaml:"log" validate:"required"`

	// BigQuery holds the raw connection settings keyed by their setting
	// names (bqProjectId, bqDatasetId, ...). They are turned into a
	// Configuration by a Resolver.
	BigQuery map[string]string `yaml:"bigquery"`

	// Mapping configuration
	Mapping MappingConfig `yaml:"mapping"`

	// HTTP client configuration for outbound calls
	HTTP HTTPConfig `yaml:"http"`

	// Health server configuration
	Health HealthConfig `yaml:"health"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configuration
	Tracing TracingConfig `yaml:"tracing"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	// Level is the log level (debug, info, warn, error)
	Level string `yaml:"level" validate:"required,oneof=debug info warn error"`

	// Format is the log format (json, console)
	Format string `yaml:"format" validate:"required,oneof=json console"`
}

// MappingConfig selects the field mapping schema
type MappingConfig struct {
	// File is a YAML mapping schema; empty selects the built-in schedule table
	File string `yaml:"file"`
}

// HTTPConfig holds outbound HTTP client settings
type HTTPConfig struct {
	// Timeout bounds every token exchange and data call
	Timeout time.Duration `yaml:"timeout" validate:"min=0"`
}

// HealthConfig holds host server configuration
type HealthConfig struct {
	// Enabled determines if the server is started by `serve`
	Enabled bool `yaml:"enabled"`

	// Address is the listen address
	Address string `yaml:"address" validate:"required_if=Enabled true"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	// Enabled determines if metrics are recorded and exposed
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name
	Namespace string `yaml:"namespace"`
}

// TracingConfig holds OpenTelemetry exporter settings
type TracingConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Endpoint      string  `yaml:"endpoint" validate:"required_if=Enabled true"`
	Insecure      bool    `yaml:"insecure"`
	SamplingRatio float64 `yaml:"sampling_ratio" validate:"min=0,max=1"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		BigQuery: map[string]string{},
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
		Health: HealthConfig{
			Enabled: true,
			Address: ":8080",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "hyperfleet_bigquery_vtable",
		},
		Tracing: TracingConfig{
			Endpoint:      "localhost:4317",
			Insecure:      true,
			SamplingRatio: 1.0,
		},
	}
}

// Merge merges the given config into this config
// Non-zero values from other take precedence
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}

	if len(other.BigQuery) > 0 {
		if c.BigQuery == nil {
			c.BigQuery = make(map[string]string, len(other.BigQuery))
		}
		for k, v := range other.BigQuery {
			if v != "" {
				c.BigQuery[k] = v
			}
		}
	}

	if other.Mapping.File != "" {
		c.Mapping.File = other.Mapping.File
	}

	if other.HTTP.Timeout > 0 {
		c.HTTP.Timeout = other.HTTP.Timeout
	}

	c.Health.Enabled = other.Health.Enabled
	if other.Health.Address != "" {
		c.Health.Address = other.Health.Address
	}

	c.Metrics.Enabled = other.Metrics.Enabled
	if other.Metrics.Namespace != "" {
		c.Metrics.Namespace = other.Metrics.Namespace
	}

	c.Tracing.Enabled = other.Tracing.Enabled
	if other.Tracing.Endpoint != "" {
		c.Tracing.Endpoint = other.Tracing.Endpoint
	}
	if other.Tracing.Insecure {
		c.Tracing.Insecure = true
	}
	if other.Tracing.SamplingRatio > 0 {
		c.Tracing.SamplingRatio = other.Tracing.SamplingRatio
	}
}
