package cli

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	appVersion string // set in Execute, used by serve for telemetry
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "searchproxy",
		Short: "Authenticated gateway for the Brave Search API",
		Long: `searchproxy fronts the Brave Search API for Hack Club members. Users sign in
with their Hack Club identity, mint API keys, and search through the gateway;
the shared upstream subscription never leaves the server. Every request is
rate limited per user and recorded for audit.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./searchproxy.yaml)")

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}
