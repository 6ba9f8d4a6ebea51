// Package config holds the options shared by every command. Values are
// layered: built-in defaults, then the YAML file, then BOSCH_* environment
// variables, then flags given on the command line.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/OlliL/bosch-thermostat-mqtt/data/model"
)

// ErrInvalid is returned by Validate for missing or malformed options.
var ErrInvalid = errors.New("invalid configuration")

const (
	DefaultFile         = "config.yml"
	DefaultInterval     = 300
	DefaultMQTTPort     = 1883
	DefaultMQTTProtocol = 3

	QoSAtMostOnce  = "at-most-once"
	QoSAtLeastOnce = "at-least-once"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Accepted values for the protocol and device options.
var (
	Protocols = []string{"XMPP", "HTTP"}
	Devices   = []string{"NEFIT", "IVT", "EASYCONTROL"}
)

// Command names the subcommand a configuration is validated for.
type Command string

const (
	CommandScan    Command = "scan"
	CommandQuery   Command = "query"
	CommandMonitor Command = "monitor"
)

// Config is the flat option set. YAML keys use the option names with
// underscores; dashes are accepted too.
type Config struct {
	Host      string `yaml:"host"`
	Token     string `yaml:"token"`
	Password  string `yaml:"password"`
	Protocol  string `yaml:"protocol"`
	Device    string `yaml:"device"`
	Magic     string `yaml:"magic"`
	Debug     int    `yaml:"debug"`
	LogFile   string `yaml:"log_file"`
	LogFormat string `yaml:"log_format"`

	SmallScan string     `yaml:"smallscan"`
	Paths     StringList `yaml:"path"`

	Daemon   bool `yaml:"daemon"`
	Interval int  `yaml:"interval"`

	MQTT MQTTConfig `yaml:",inline"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Host     string `yaml:"mqtt_host"`
	Port     int    `yaml:"mqtt_port"`
	Username string `yaml:"mqtt_username"`
	Password string `yaml:"mqtt_password"`
	Protocol int    `yaml:"mqtt_protocol"`
	QoS      string `yaml:"mqtt_qos"`
	Retain   bool   `yaml:"mqtt_retain"`
}

// StringList decodes either a YAML sequence or a single scalar.
type StringList []string

func (sl *StringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*sl = StringList{value.Value}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*sl = list
	return nil
}

// Default returns a Config with the documented defaults.
func Default() *Config {
	return &Config{
		Interval:  DefaultInterval,
		LogFormat: LogFormatText,
		MQTT: MQTTConfig{
			Port:     DefaultMQTTPort,
			Protocol: DefaultMQTTProtocol,
			QoS:      QoSAtMostOnce,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is
// not an error; the defaults are returned as they are.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if len(doc.Content) == 0 {
		return cfg, nil
	}
	normalizeKeys(doc.Content[0])
	if err := doc.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// normalizeKeys rewrites mqtt-host style keys to mqtt_host.
func normalizeKeys(node *yaml.Node) {
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i]
		key.Value = strings.ReplaceAll(key.Value, "-", "_")
	}
}

// ApplyEnv fills options from the BOSCH_* variables. getenv is usually
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("BOSCH_HOST"); v != "" {
		c.Host = v
	}
	if v := getenv("BOSCH_ACCESS_TOKEN"); v != "" {
		c.Token = v
	}
	if v := getenv("BOSCH_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := getenv("BOSCH_PROTOCOL"); v != "" {
		c.Protocol = v
	}
	if v := getenv("BOSCH_DEVICE"); v != "" {
		c.Device = v
	}
}

// Validate checks the options needed by cmd.
func (c *Config) Validate(cmd Command) error {
	var errs []string

	required := []struct {
		name  string
		value string
	}{
		{"host", c.Host},
		{"token", c.Token},
		{"protocol", c.Protocol},
		{"device", c.Device},
		{"mqtt-host", c.MQTT.Host},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Sprintf("missing option --%s", r.name))
		}
	}

	if c.Protocol != "" && !contains(Protocols, c.Protocol, false) {
		errs = append(errs, fmt.Sprintf("protocol %q is not one of %s", c.Protocol, strings.Join(Protocols, ", ")))
	}
	if c.Device != "" && !contains(Devices, c.Device, true) {
		errs = append(errs, fmt.Sprintf("device %q is not one of %s", c.Device, strings.Join(Devices, ", ")))
	}
	if c.Debug < 0 {
		errs = append(errs, "debug must not be negative")
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		errs = append(errs, fmt.Sprintf("log-format must be %s or %s", LogFormatText, LogFormatJSON))
	}
	if c.Interval < 1 {
		errs = append(errs, "interval must be at least 1 second")
	}
	if c.MQTT.Port < 1 || c.MQTT.Port > 65535 {
		errs = append(errs, "mqtt-port must be between 1 and 65535")
	}
	if c.MQTT.Protocol != 3 && c.MQTT.Protocol != 5 {
		errs = append(errs, "mqtt-protocol must be 3 or 5")
	}
	if c.MQTT.QoS != QoSAtMostOnce && c.MQTT.QoS != QoSAtLeastOnce {
		errs = append(errs, fmt.Sprintf("mqtt-qos must be %s or %s", QoSAtMostOnce, QoSAtLeastOnce))
	}

	switch cmd {
	case CommandScan, CommandMonitor:
		if c.SmallScan != "" {
			if _, err := model.ParseScanKind(c.SmallScan); err != nil {
				errs = append(errs, err.Error())
			}
		}
	case CommandQuery:
		if len(c.Paths) == 0 {
			errs = append(errs, "missing option --path")
		}
		for _, p := range c.Paths {
			if !strings.HasPrefix(p, "/") {
				errs = append(errs, fmt.Sprintf("path %q must start with /", p))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// IntervalDuration returns the daemon polling interval.
func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

func contains(list []string, v string, fold bool) bool {
	for _, s := range list {
		if s == v || (fold && strings.EqualFold(s, v)) {
			return true
		}
	}
	return false
}
