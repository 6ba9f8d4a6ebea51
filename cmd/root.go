package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/OlliL/bosch-thermostat-mqtt/config"
)

// version is set at build time with -ldflags "-X .../cmd.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "bosch-thermostat-mqtt",
	Short: "Publish Bosch thermostat values to MQTT",
	Long: `This tool reads values from a Bosch thermostat gateway (Nefit Easy,
IVT, EasyControl) over XMPP or HTTP and publishes every value to an MQTT
broker under bosch/<device>-<uuid>/<path>.

Examples:

- Publish the whole register map once:
    bosch-thermostat-mqtt scan --host 123456789 --token ... --protocol XMPP --device NEFIT --mqtt-host broker
- Publish hot water values every minute:
    bosch-thermostat-mqtt scan -s DHW --daemon --interval 60 ...
- Publish selected paths:
    bosch-thermostat-mqtt query -p /dhwCircuits/dhw1/actualTemp -p /system/sensors/outdoorTemperatures/t1 ...`,
	Version:      version,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	config.AddBaseFlags(rootCmd.PersistentFlags())
}
