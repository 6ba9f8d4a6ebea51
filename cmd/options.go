package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"

	"github.com/OlliL/bosch-thermostat-mqtt/bosch"
	"github.com/OlliL/bosch-thermostat-mqtt/bridge"
	"github.com/OlliL/bosch-thermostat-mqtt/config"
	"github.com/OlliL/bosch-thermostat-mqtt/data/model"
	"github.com/OlliL/bosch-thermostat-mqtt/logging"
)

var pahoLogOnce sync.Once

// loadConfig layers defaults, the config file, the environment and the
// command line, then validates the result for mode.
func loadConfig(cmd *cobra.Command, mode config.Command, getenv func(string) string) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(getenv)
	if err := cfg.Overlay(cmd.Flags()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, output io.Writer) (*slog.Logger, io.Closer, error) {
	logger, closer, err := logging.New(logging.Config{
		Verbosity: cfg.Debug,
		File:      cfg.LogFile,
		Format:    cfg.LogFormat,
		Output:    output,
	})
	if err != nil {
		return nil, nil, err
	}

	pahoLogOnce.Do(func() {
		mqtt.ERROR = logging.StdLogger(logger, slog.LevelError)
		mqtt.CRITICAL = logging.StdLogger(logger, slog.LevelError)
		mqtt.WARN = logging.StdLogger(logger, slog.LevelWarn)
		if cfg.Debug >= 2 {
			mqtt.DEBUG = logging.StdLogger(logger, logging.LevelTrace)
		}
	})
	return logger, closer, nil
}

func newGateway(cfg *config.Config, logger *slog.Logger) (*bosch.Gateway, error) {
	protocol, err := bosch.ParseProtocol(cfg.Protocol)
	if err != nil {
		return nil, err
	}
	family, err := bosch.LookupFamily(cfg.Device)
	if err != nil {
		return nil, err
	}
	var magic []byte
	if cfg.Magic != "" {
		if magic, err = bosch.ParseMagic(cfg.Magic); err != nil {
			return nil, err
		}
	}
	return bosch.New(bosch.Options{
		Protocol: protocol,
		Family:   family,
		Host:     cfg.Host,
		Token:    cfg.Token,
		Password: cfg.Password,
		Magic:    magic,
	}, logger)
}

func brokerOptions(cfg *config.Config) bridge.BrokerOptions {
	opts := bridge.BrokerOptions{
		Host:     cfg.MQTT.Host,
		Port:     cfg.MQTT.Port,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		Retain:   cfg.MQTT.Retain,
	}
	if cfg.MQTT.QoS == config.QoSAtLeastOnce {
		opts.QoS = 1
	}
	return opts
}

func newConnector(cfg *config.Config, logger *slog.Logger) bridge.Connector {
	if cfg.MQTT.Protocol == 5 {
		return bridge.NewAutopahoConnector(brokerOptions(cfg), logger)
	}
	return bridge.NewPahoConnector(brokerOptions(cfg), logger)
}

func newFetcher(cfg *config.Config, mode config.Command) (bridge.Fetcher, error) {
	if mode == config.CommandQuery {
		return bridge.QueryFetcher{Paths: cfg.Paths}, nil
	}
	if cfg.SmallScan == "" {
		return bridge.ScanFetcher{}, nil
	}
	kind, err := model.ParseScanKind(cfg.SmallScan)
	if err != nil {
		return nil, err
	}
	return bridge.ScanFetcher{Small: true, Kind: kind}, nil
}

// runPipeline wires config, gateway and broker together and runs until
// the cycle (or daemon loop) ends or the process is signalled.
func runPipeline(ctx context.Context, cfg *config.Config, mode config.Command, logger *slog.Logger, observer bridge.Observer) error {
	logger.Debug("configuration", "options", cfg.String())

	fetcher, err := newFetcher(cfg, mode)
	if err != nil {
		return err
	}
	gw, err := newGateway(cfg, logger)
	if err != nil {
		return err
	}

	publisher := bridge.NewPublisher(newConnector(cfg, logger), observer, logger)
	runner := bridge.NewRunner(gw, fetcher, publisher, bridge.RunOptions{
		Daemon:   cfg.Daemon,
		Interval: cfg.IntervalDuration(),
	}, logger)
	return runner.Run(ctx)
}

// runCommand is the shared body of scan and query.
func runCommand(cmd *cobra.Command, mode config.Command) error {
	cfg, err := loadConfig(cmd, mode, os.Getenv)
	if err != nil {
		return err
	}
	logger, closer, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runPipeline(ctx, cfg, mode, logger, nil); err != nil {
		logger.Error("run failed", "error", err)
		return fmt.Errorf("%s: %w", mode, err)
	}
	return nil
}
