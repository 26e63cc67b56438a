package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by this module
const EnvPrefix = "BQVT_"

// LoadOption is a functional option for loading configuration
type LoadOption func(*loadOptions)

type loadOptions struct {
	configFile string
	fromEnv    bool
}

// WithConfigFile specifies the config file path
func WithConfigFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.configFile = path
	}
}

// WithEnv enables environment variable overrides
func WithEnv() LoadOption {
	return func(o *loadOptions) {
		o.fromEnv = true
	}
}

// Load loads configuration with the given options
func Load(opts ...LoadOption) (*Config, error) {
	options := &loadOptions{}
	for _, opt := range opts {
		opt(options)
	}

	config := DefaultConfig()

	if options.configFile != "" {
		fileConfig, err := loadFromFile(options.configFile)
		if err != nil {
			return nil, err
		}
		config.Merge(fileConfig)
	}

	if options.fromEnv {
		config.Merge(loadFromEnv(config))
	}

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file. Keys absent from the
// file keep their default values.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(
			errors.ErrConfigLoadFailed,
			err,
			"failed to read config file",
		).WithField("path", path)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(
			errors.ErrConfigInvalid,
			err,
			"failed to parse config file",
		).WithField("path", path)
	}

	return config, nil
}

// loadFromEnv reads BQVT_* overrides, using base for anything unset
func loadFromEnv(base *Config) *Config {
	return &Config{
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", ""),
			Format: getEnv("LOG_FORMAT", ""),
		},
		Mapping: MappingConfig{
			File: getEnv("MAPPING_FILE", ""),
		},
		HTTP: HTTPConfig{
			Timeout: getDurationEnv("HTTP_TIMEOUT", 0),
		},
		Health: HealthConfig{
			Enabled: getBoolEnv("HEALTH_ENABLED", base.Health.Enabled),
			Address: getEnv("HEALTH_ADDRESS", ""),
		},
		Metrics: MetricsConfig{
			Enabled:   getBoolEnv("METRICS_ENABLED", base.Metrics.Enabled),
			Namespace: getEnv("METRICS_NAMESPACE", ""),
		},
		Tracing: TracingConfig{
			Enabled:       getBoolEnv("TRACING_ENABLED", base.Tracing.Enabled),
			Endpoint:      getEnv("TRACING_ENDPOINT", ""),
			Insecure:      getBoolEnv("TRACING_INSECURE", false),
			SamplingRatio: getFloatEnv("TRACING_SAMPLING_RATIO", 0),
		},
	}
}

// getEnv gets a prefixed environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv gets a boolean environment variable with a default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getFloatEnv gets a float environment variable with a default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable with a default value.
// Accepts Go duration syntax or a plain number of seconds.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
