package common

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/logger"
)

// EnvPrefix is the viper prefix for flag overrides (BQVT_LOG_LEVEL, ...)
const EnvPrefix = "BQVT"

type Flags struct {
	LogLevel        string
	LogFormat       string
	ConfigFile      string
	MappingFile     string
	CredentialsFile string
}

// InitViper makes every flag overridable from a BQVT_ environment variable
func InitViper() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindFlagsToViper copies environment overrides into flags. Unset
// variables leave the flag value alone.
func BindFlagsToViper(flags *Flags) {
	bind := func(key string, target *string) {
		if value, ok := os.LookupEnv(EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))); ok && value != "" {
			*target = viper.GetString(key)
		}
	}

	bind("log-level", &flags.LogLevel)
	bind("log-format", &flags.LogFormat)
	bind("config", &flags.ConfigFile)
	bind("mapping-file", &flags.MappingFile)
	bind("credentials-file", &flags.CredentialsFile)
}

// BindPersistentFlags registers cmd's persistent flags with viper
func BindPersistentFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.PersistentFlags())
}

func CreateLogger(flags *Flags) (logger.Logger, error) {
	// stderr only; stdout carries command output
	return logger.New(logger.Config{
		Level:  logger.ParseLevel(flags.LogLevel),
		Format: logger.ParseFormat(flags.LogFormat),
		Output: os.Stderr,
	})
}

func SetupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
