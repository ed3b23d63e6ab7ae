package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"signup/config"
	"signup/internal/events"

	"github.com/nats-io/nats.go"
)

func Connect(cfg *config.Config) (*nats.Conn, nats.JetStreamContext, error) {
	return ConnectURL(fmt.Sprintf("nats://%s:%d", cfg.NATS.Host, cfg.NATS.Port))
}

func ConnectURL(address string) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(address, nats.Name("signup-server"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return nc, js, nil
}

func ConfigureStream(js nats.JetStreamContext, streamCfg *config.StreamConfig) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     streamCfg.Name,
		Subjects: streamCfg.Subjects,
	})
	if err != nil {
		return fmt.Errorf("failed to add stream: %w", err)
	}
	return nil
}

// Bus publishes participant changes to JetStream and hands out core
// subscriptions for live listeners.
type Bus struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

func NewBus(nc *nats.Conn, js nats.JetStreamContext) *Bus {
	return &Bus{nc: nc, js: js}
}

func (b *Bus) Publish(ctx context.Context, change events.Change) error {
	messageBytes, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change for participant %s: %w", change.ParticipantID, err)
	}

	if _, err := b.js.Publish(change.Subject(), messageBytes, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish change to JetStream for participant %s: %w", change.ParticipantID, err)
	}
	return nil
}

// Subscribe registers an ephemeral listener. Messages published before the
// call are not replayed.
func (b *Bus) Subscribe(subject string, handler events.Handler) (events.Subscription, error) {
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		change, err := decode(msg)
		if err != nil {
			log.Printf("Dropping malformed change on %s: %v", msg.Subject, err)
			return
		}
		handler(change)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	return sub, nil
}

// SubscribeDurable attaches handler to a durable JetStream queue consumer.
// Each message is acknowledged before the handler runs, so a change is
// handed out at most once even if the handler crashes.
func (b *Bus) SubscribeDurable(subject, consumer string, handler events.Handler) (events.Subscription, error) {
	sub, err := b.js.QueueSubscribe(subject, consumer, func(msg *nats.Msg) {
		if err := msg.Ack(); err != nil {
			log.Printf("Error acknowledging %s: %v", msg.Subject, err)
			return
		}
		change, err := decode(msg)
		if err != nil {
			log.Printf("Dropping malformed change on %s: %v", msg.Subject, err)
			return
		}
		handler(change)
	}, nats.Durable(consumer), nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to JetStream subject %s: %w", subject, err)
	}
	return sub, nil
}

func decode(msg *nats.Msg) (events.Change, error) {
	var change events.Change
	if err := json.Unmarshal(msg.Data, &change); err != nil {
		return change, err
	}
	return change, nil
}
