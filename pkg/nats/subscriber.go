package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"prompt-optimiser-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler processes one event. Returning an error naks the message for redelivery.
type EventHandler func(ctx context.Context, event events.Event) error

type Subscriber struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	consume jetstream.ConsumeContext
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, err := nats.Connect(url,
		nats.Name("prompt-optimiser-audit"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe attaches a durable consumer for subject and starts delivering to handler.
func (s *Subscriber) Subscribe(ctx context.Context, subject, durableName string, handler EventHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var payload map[string]interface{}
		if err := json.Unmarshal(msg.Data(), &payload); err != nil {
			// malformed payloads are never going to parse; drop them
			_ = msg.Term()
			return
		}

		occurredAt := time.Now()
		if meta, err := msg.Metadata(); err == nil {
			occurredAt = meta.Timestamp
		}

		event := events.BaseEvent{
			Type:       strings.TrimPrefix(msg.Subject(), subjectPrefix+"."),
			Data:       payload,
			OccurredAt: occurredAt,
		}

		if err := handler(ctx, event); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.consume = cc
	return nil
}

func (s *Subscriber) Close() {
	if s == nil {
		return
	}
	if s.consume != nil {
		s.consume.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
