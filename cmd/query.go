package cmd

import (
	"github.com/spf13/cobra"

	"github.com/OlliL/bosch-thermostat-mqtt/config"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query selected paths and publish their values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, config.CommandQuery)
	},
}

func init() {
	config.AddQueryFlags(queryCmd.Flags())
	rootCmd.AddCommand(queryCmd)
}
