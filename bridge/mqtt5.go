package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/OlliL/bosch-thermostat-mqtt/logging"
)

// AutopahoConnector speaks MQTT 5. autopaho always reconnects, so a session
// that does not come up in time is cancelled rather than left retrying.
type AutopahoConnector struct {
	opts    BrokerOptions
	timeout time.Duration
	logger  *slog.Logger
}

func NewAutopahoConnector(opts BrokerOptions, logger *slog.Logger) *AutopahoConnector {
	return &AutopahoConnector{opts: opts, timeout: connectTimeout, logger: logger}
}

func (c *AutopahoConnector) Connect(ctx context.Context) (Session, error) {
	brokerURL := &url.URL{Scheme: "mqtt", Host: c.opts.address()}

	cfg := autopaho.ClientConfig{
		ServerUrls: []*url.URL{brokerURL},
		KeepAlive:  30,
		OnConnectionUp: func(_ *autopaho.ConnectionManager, _ *paho.Connack) {
			c.logger.Debug("mqtt connected to broker", "broker", brokerURL.Host, "protocol", "5")
		},
		OnConnectError: func(err error) {
			c.logger.Debug("mqtt connection error", "error", err)
		},
		Errors: logging.StdLogger(c.logger, slog.LevelError),
		ClientConfig: paho.ClientConfig{
			ClientID: ClientID,
		},
	}
	if c.opts.hasCredentials() {
		cfg.ConnectUsername = c.opts.Username
		cfg.ConnectPassword = []byte(c.opts.Password)
	}

	// The manager outlives ctx of this call; it is stopped by Disconnect.
	runCtx, cancel := context.WithCancel(context.Background())
	cm, err := autopaho.NewConnection(runCtx, cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, brokerURL.Host, err)
	}

	waitCtx, waitCancel := context.WithTimeout(ctx, c.timeout)
	defer waitCancel()
	if err := cm.AwaitConnection(waitCtx); err != nil {
		cancel()
		<-cm.Done()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, brokerURL.Host, err)
	}

	return &autopahoSession{cm: cm, cancel: cancel, qos: c.opts.QoS, retain: c.opts.Retain}, nil
}

type autopahoSession struct {
	cm     *autopaho.ConnectionManager
	cancel context.CancelFunc
	qos    byte
	retain bool
}

func (s *autopahoSession) Publish(ctx context.Context, topic string, payload []byte) error {
	_, err := s.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     s.qos,
		Retain:  s.retain,
		Payload: payload,
	})
	return err
}

func (s *autopahoSession) Disconnect() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.cm.Disconnect(ctx)
	s.cancel()
	<-s.cm.Done()
}
