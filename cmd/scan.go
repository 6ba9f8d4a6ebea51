package cmd

import (
	"github.com/spf13/cobra"

	"github.com/OlliL/bosch-thermostat-mqtt/config"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the gateway and publish every value",
	Long: `Walk the register map of the gateway and publish every value found.
With --smallscan only one subsystem is read: HC, DHW, SENSORS or RECORDINGS.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, config.CommandScan)
	},
}

func init() {
	config.AddScanFlags(scanCmd.Flags())
	rootCmd.AddCommand(scanCmd)
}
