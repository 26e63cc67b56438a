package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/cmd/vtable/common"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/cmd/vtable/record"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/cmd/vtable/serve"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/cmd/vtable/token"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/cmd/vtable/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	// Create shared flags struct
	flags := &common.Flags{}
	common.InitViper()

	rootCmd := &cobra.Command{
		Use:   "bqvt",
		Short: "BigQuery virtual table adapter",
		Long: `bqvt exposes a BigQuery table as a virtual table: records keyed by a
GUID primary key, with virtual column names mapped onto the table's columns.

Rows are read and written through the BigQuery REST API using a service
account key, without the Google Cloud SDK.

Settings come from --config, then BQVT_* environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			common.BindFlagsToViper(flags)
		},
	}

	// Add global flags
	rootCmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.LogFormat, "log-format", "json", "Log format (json, console)")
	rootCmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&flags.MappingFile, "mapping-file", "", "Path to YAML field mapping schema (default: built-in schedule table)")
	rootCmd.PersistentFlags().StringVar(&flags.CredentialsFile, "credentials-file", "", "Path to service account key file (overrides bqServiceAccountJson)")

	// Add subcommands
	rootCmd.AddCommand(version.NewCommand())
	rootCmd.AddCommand(token.NewCommand(flags))
	rootCmd.AddCommand(record.NewCommand(flags))
	rootCmd.AddCommand(serve.NewCommand(flags))

	return rootCmd
}
