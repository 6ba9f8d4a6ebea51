// Package bridge moves gateway readings to an MQTT broker: it fetches a
// result set from the gateway, flattens it and publishes every leaf value
// on its own topic, once or on an interval.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	// ClientID identifies this tool to the broker.
	ClientID = "bosch-thermostat-mqtt"

	connectTimeout  = 5 * time.Second
	disconnectQuiet = 250
)

// Connector opens a fresh broker session per publish cycle.
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}

// Session is one live broker connection.
type Session interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Disconnect()
}

// BrokerOptions are shared by the MQTT v3.1.1 and v5 connectors.
type BrokerOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	// QoS is 0 (at most once) or 1 (at least once, acked per message).
	QoS    byte
	Retain bool
}

func (o BrokerOptions) address() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

func (o BrokerOptions) hasCredentials() bool {
	return o.Username != "" && o.Password != ""
}

// PahoConnector speaks MQTT 3.1.1.
type PahoConnector struct {
	opts    BrokerOptions
	timeout time.Duration
	logger  *slog.Logger
}

func NewPahoConnector(opts BrokerOptions, logger *slog.Logger) *PahoConnector {
	return &PahoConnector{opts: opts, timeout: connectTimeout, logger: logger}
}

func (c *PahoConnector) Connect(ctx context.Context) (Session, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker("tcp://" + c.opts.address())
	opts.SetClientID(ClientID)
	if c.opts.hasCredentials() {
		opts.SetUsername(c.opts.Username)
		opts.SetPassword(c.opts.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(c.timeout)
	opts.SetProtocolVersion(4)

	client := mqtt.NewClient(opts)
	c.logger.Debug("mqtt connecting", "broker", c.opts.address(), "protocol", "3.1.1")

	token := client.Connect()
	if err := waitToken(ctx, token, c.timeout); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, c.opts.address(), err)
	}
	return &pahoSession{client: client, qos: c.opts.QoS, retain: c.opts.Retain}, nil
}

type pahoSession struct {
	client mqtt.Client
	qos    byte
	retain bool
}

func (s *pahoSession) Publish(ctx context.Context, topic string, payload []byte) error {
	token := s.client.Publish(topic, s.qos, s.retain, payload)
	return waitToken(ctx, token, 0)
}

func (s *pahoSession) Disconnect() {
	s.client.Disconnect(disconnectQuiet)
}

// waitToken blocks until token completes, ctx ends or timeout (if
// positive) expires.
func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-token.Done():
		return token.Error()
	case <-expired:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
