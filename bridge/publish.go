package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/OlliL/bosch-thermostat-mqtt/data/model"
	"github.com/OlliL/bosch-thermostat-mqtt/data/mqtt"
)

// Observer is told about every message after it was published.
type Observer func(mqtt.Message)

// Publisher flattens result sets and sends each leaf value over a fresh
// broker session.
type Publisher struct {
	connector Connector
	observer  Observer
	logger    *slog.Logger
}

func NewPublisher(connector Connector, observer Observer, logger *slog.Logger) *Publisher {
	return &Publisher{connector: connector, observer: observer, logger: logger}
}

func (p *Publisher) withLogger(logger *slog.Logger) *Publisher {
	cp := *p
	cp.logger = logger
	return &cp
}

// Publish connects, publishes every leaf of result under device's topic
// prefix in traversal order and disconnects. The session is closed even
// when a publish fails; the remaining messages are then dropped.
func (p *Publisher) Publish(ctx context.Context, device *model.Device, result model.ScanResult) error {
	session, err := p.connector.Connect(ctx)
	if err != nil {
		return err
	}
	defer session.Disconnect()

	msgs, err := mqtt.MessagesFor(device, result)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(msgs))
	for _, msg := range msgs {
		if _, dup := seen[msg.Topic]; dup {
			p.logger.Warn("topic published more than once in this cycle", "topic", msg.Topic)
		}
		seen[msg.Topic] = struct{}{}

		if err := session.Publish(ctx, msg.Topic, msg.Payload); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrPublishFailed, msg.Topic, err)
		}
		p.logger.Debug("published", "topic", msg.Topic, "payload", string(msg.Payload))
		if p.observer != nil {
			p.observer(msg)
		}
	}

	p.logger.Info("publish complete", "messages", len(msgs), "records", model.Len(result))
	return nil
}
