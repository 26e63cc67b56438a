package common

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitViper(t *testing.T) {
	viper.Reset()
	InitViper()

	t.Setenv("BQVT_TEST_KEY", "test-value")

	value := viper.GetString("test-key")
	assert.Equal(t, "test-value", value, "Viper should read environment variable with prefix")
}

func TestBindFlagsToViper(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		initial  *Flags
		expected *Flags
	}{
		{
			name:     "bind log-level from env",
			envVars:  map[string]string{"BQVT_LOG_LEVEL": "debug"},
			initial:  &Flags{LogLevel: "info"},
			expected: &Flags{LogLevel: "debug"},
		},
		{
			name:     "bind log-format from env",
			envVars:  map[string]string{"BQVT_LOG_FORMAT": "console"},
			initial:  &Flags{LogFormat: "json"},
			expected: &Flags{LogFormat: "console"},
		},
		{
			name: "bind file paths from env",
			envVars: map[string]string{
				"BQVT_CONFIG":           "/etc/bqvt/config.yaml",
				"BQVT_MAPPING_FILE":     "/etc/bqvt/mapping.yaml",
				"BQVT_CREDENTIALS_FILE": "/vault/secrets/bigquery-sa.json",
			},
			initial: &Flags{},
			expected: &Flags{
				ConfigFile:      "/etc/bqvt/config.yaml",
				MappingFile:     "/etc/bqvt/mapping.yaml",
				CredentialsFile: "/vault/secrets/bigquery-sa.json",
			},
		},
		{
			name:     "no env vars keeps flag values",
			envVars:  map[string]string{},
			initial:  &Flags{LogLevel: "warn", LogFormat: "json"},
			expected: &Flags{LogLevel: "warn", LogFormat: "json"},
		},
		{
			name:     "empty env var keeps flag value",
			envVars:  map[string]string{"BQVT_LOG_LEVEL": ""},
			initial:  &Flags{LogLevel: "error"},
			expected: &Flags{LogLevel: "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			viper.Reset()
			InitViper()

			flags := tt.initial
			BindFlagsToViper(flags)

			assert.Equal(t, tt.expected, flags)
		})
	}
}

func TestBindPersistentFlags(t *testing.T) {
	viper.Reset()
	InitViper()

	rootCmd := &cobra.Command{Use: "root"}
	var testFlag string
	rootCmd.PersistentFlags().StringVar(&testFlag, "persistent-flag", "", "persistent test flag")

	require.NoError(t, BindPersistentFlags(rootCmd))

	t.Setenv("BQVT_PERSISTENT_FLAG", "persistent-value")

	assert.Equal(t, "persistent-value", viper.GetString("persistent-flag"))
}

func TestCreateLogger(t *testing.T) {
	for _, flags := range []*Flags{
		{LogLevel: "debug", LogFormat: "console"},
		{LogLevel: "bogus", LogFormat: "bogus"},
		{},
	} {
		log, err := CreateLogger(flags)
		require.NoError(t, err)
		assert.NotNil(t, log)
	}
}
