package config

import (
	"strconv"

	"github.com/spf13/pflag"
)

// AddBaseFlags registers the options shared by every command. Defaults
// shown in help come from Default; the values themselves are copied into
// a Config by Overlay only when given on the command line.
func AddBaseFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", DefaultFile, "Read configuration from PATH.")
	fs.String("host", "", "IP address of gateway or SERIAL for XMPP (env BOSCH_HOST)")
	fs.String("token", "", "Token from sticker without dashes (env BOSCH_ACCESS_TOKEN)")
	fs.String("password", "", "Password you set in mobile app (env BOSCH_PASSWORD)")
	fs.String("protocol", "", "Bosch protocol. Either XMPP or HTTP (env BOSCH_PROTOCOL)")
	fs.String("device", "", "Bosch device type. NEFIT, IVT or EASYCONTROL (env BOSCH_DEVICE)")
	fs.String("magic", "", "Hex key material for devices without a built-in one")
	fs.CountP("debug", "d", "Set debug mode. Once logs debug, twice also logs gateway payloads")
	fs.String("log-file", "", "Append log output to this file instead of stderr")
	fs.String("log-format", d.LogFormat, "Log output format: "+LogFormatText+" or "+LogFormatJSON+".")

	fs.Bool("daemon", false, "Start as daemon.")
	fs.Int("interval", d.Interval, "Polling interval in seconds when started as daemon.")
	fs.String("mqtt-host", "", "Address of MQTT host.")
	fs.Int("mqtt-port", d.MQTT.Port, "Port of MQTT host.")
	fs.String("mqtt-username", "", "Username for MQTT connect.")
	fs.String("mqtt-password", "", "Password for MQTT connect.")
	fs.Int("mqtt-protocol", d.MQTT.Protocol, "MQTT protocol version, 3 (3.1.1) or 5.")
	fs.String("mqtt-qos", d.MQTT.QoS, "Delivery policy: "+QoSAtMostOnce+" or "+QoSAtLeastOnce+".")
	fs.Bool("mqtt-retain", d.MQTT.Retain, "Publish with the retain flag set.")
}

// AddScanFlags registers the scan selector.
func AddScanFlags(fs *pflag.FlagSet) {
	fs.StringP("smallscan", "s", "", "Scan only single circuit of thermostat: HC, DHW, SENSORS or RECORDINGS.")
}

// AddQueryFlags registers the query paths.
func AddQueryFlags(fs *pflag.FlagSet) {
	fs.StringArrayP("path", "p", nil, "Path to run against, e.g. /gateway/uuid. Can be specified multiple times!")
}

// Overlay copies every flag set on the command line into c. Flags that
// were not given leave the file and environment values untouched.
func (c *Config) Overlay(fs *pflag.FlagSet) error {
	o := overlay{fs: fs}

	o.str("host", &c.Host)
	o.str("token", &c.Token)
	o.str("password", &c.Password)
	o.str("protocol", &c.Protocol)
	o.str("device", &c.Device)
	o.str("magic", &c.Magic)
	o.count("debug", &c.Debug)
	o.str("log-file", &c.LogFile)
	o.str("log-format", &c.LogFormat)
	o.str("smallscan", &c.SmallScan)
	o.strArray("path", (*[]string)(&c.Paths))
	o.boolean("daemon", &c.Daemon)
	o.integer("interval", &c.Interval)
	o.str("mqtt-host", &c.MQTT.Host)
	o.integer("mqtt-port", &c.MQTT.Port)
	o.str("mqtt-username", &c.MQTT.Username)
	o.str("mqtt-password", &c.MQTT.Password)
	o.integer("mqtt-protocol", &c.MQTT.Protocol)
	o.str("mqtt-qos", &c.MQTT.QoS)
	o.boolean("mqtt-retain", &c.MQTT.Retain)

	return o.err
}

// overlay remembers the first lookup error so Overlay reads as a list.
type overlay struct {
	fs  *pflag.FlagSet
	err error
}

func (o *overlay) changed(name string) bool {
	return o.err == nil && o.fs.Lookup(name) != nil && o.fs.Changed(name)
}

func (o *overlay) str(name string, dst *string) {
	if o.changed(name) {
		*dst, o.err = o.fs.GetString(name)
	}
}

func (o *overlay) strArray(name string, dst *[]string) {
	if o.changed(name) {
		*dst, o.err = o.fs.GetStringArray(name)
	}
}

func (o *overlay) boolean(name string, dst *bool) {
	if o.changed(name) {
		*dst, o.err = o.fs.GetBool(name)
	}
}

func (o *overlay) integer(name string, dst *int) {
	if o.changed(name) {
		*dst, o.err = o.fs.GetInt(name)
	}
}

func (o *overlay) count(name string, dst *int) {
	if o.changed(name) {
		*dst, o.err = o.fs.GetCount(name)
	}
}

// String renders the options for debug logs with secrets masked.
func (c *Config) String() string {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	return "host=" + c.Host +
		" protocol=" + c.Protocol +
		" device=" + c.Device +
		" token=" + mask(c.Token) +
		" password=" + mask(c.Password) +
		" mqtt=" + c.MQTT.Host + ":" + strconv.Itoa(c.MQTT.Port) +
		" mqtt_protocol=" + strconv.Itoa(c.MQTT.Protocol) +
		" mqtt_qos=" + c.MQTT.QoS +
		" daemon=" + strconv.FormatBool(c.Daemon) +
		" interval=" + strconv.Itoa(c.Interval)
}
