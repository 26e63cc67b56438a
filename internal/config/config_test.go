package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, 30*time.Second, config.HTTP.Timeout)
	assert.True(t, config.Health.Enabled)
	assert.Equal(t, ":8080", config.Health.Address)
	assert.True(t, config.Metrics.Enabled)
	assert.False(t, config.Tracing.Enabled)
	assert.NotNil(t, config.BigQuery)
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	base.BigQuery[KeyDatasetID] = "base_dataset"

	override := &Config{
		Log: LogConfig{
			Level: "debug",
		},
		BigQuery: map[string]string{
			KeyProjectID: "override-project",
			KeyDatasetID: "",
		},
		Mapping: MappingConfig{File: "/etc/bqvt/mapping.yaml"},
		HTTP:    HTTPConfig{Timeout: 5 * time.Second},
	}

	base.Merge(override)

	assert.Equal(t, "debug", base.Log.Level)
	assert.Equal(t, "json", base.Log.Format)
	assert.Equal(t, "override-project", base.BigQuery[KeyProjectID])
	assert.Equal(t, "base_dataset", base.BigQuery[KeyDatasetID], "empty values do not override")
	assert.Equal(t, "/etc/bqvt/mapping.yaml", base.Mapping.File)
	assert.Equal(t, 5*time.Second, base.HTTP.Timeout)
}

func TestConfigMerge_Nil(t *testing.T) {
	base := DefaultConfig()
	base.Merge(nil)
	assert.Equal(t, DefaultConfig(), base)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfigFile(t, `
log:
  level: warn
  format: console
bigquery:
  bqProjectId: myproject-469115
  bqDatasetId: my_baseball_data
  bqTableId: schedule
mapping:
  file: mapping.yaml
http:
  timeout: 10s
tracing:
  enabled: true
  endpoint: collector:4317
`)

	config, err := Load(WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, "warn", config.Log.Level)
	assert.Equal(t, "console", config.Log.Format)
	assert.Equal(t, "myproject-469115", config.BigQuery[KeyProjectID])
	assert.Equal(t, "my_baseball_data", config.BigQuery[KeyDatasetID])
	assert.Equal(t, "schedule", config.BigQuery[KeyTableID])
	assert.Equal(t, "mapping.yaml", config.Mapping.File)
	assert.Equal(t, 10*time.Second, config.HTTP.Timeout)
	assert.True(t, config.Tracing.Enabled)
	assert.Equal(t, "collector:4317", config.Tracing.Endpoint)

	// untouched sections keep their defaults
	assert.True(t, config.Health.Enabled)
	assert.True(t, config.Metrics.Enabled)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "log:\n  level: warn\n")

	t.Setenv("BQVT_LOG_LEVEL", "debug")
	t.Setenv("BQVT_HTTP_TIMEOUT", "45")
	t.Setenv("BQVT_HEALTH_ENABLED", "false")
	t.Setenv("BQVT_MAPPING_FILE", "/tmp/mapping.yaml")

	config, err := Load(WithConfigFile(path), WithEnv())
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, 45*time.Second, config.HTTP.Timeout)
	assert.False(t, config.Health.Enabled)
	assert.True(t, config.Metrics.Enabled)
	assert.Equal(t, "/tmp/mapping.yaml", config.Mapping.File)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		opts     func(t *testing.T) []LoadOption
		wantCode errors.ErrorCode
	}{
		{
			name: "missing file",
			opts: func(t *testing.T) []LoadOption {
				return []LoadOption{WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))}
			},
			wantCode: errors.ErrConfigLoadFailed,
		},
		{
			name: "malformed yaml",
			opts: func(t *testing.T) []LoadOption {
				return []LoadOption{WithConfigFile(writeConfigFile(t, "log: [unterminated"))}
			},
			wantCode: errors.ErrConfigInvalid,
		},
		{
			name: "invalid log level",
			opts: func(t *testing.T) []LoadOption {
				return []LoadOption{WithConfigFile(writeConfigFile(t, "log:\n  level: verbose\n"))}
			},
			wantCode: errors.ErrConfigInvalid,
		},
		{
			name: "sampling ratio out of range",
			opts: func(t *testing.T) []LoadOption {
				return []LoadOption{WithConfigFile(writeConfigFile(t, "tracing:\n  sampling_ratio: 2\n"))}
			},
			wantCode: errors.ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := Load(tt.opts(t)...)
			require.Error(t, err)
			assert.Nil(t, config)
			assert.Equal(t, tt.wantCode, errors.GetCode(err))
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	err := Validate(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigInvalid))
}
