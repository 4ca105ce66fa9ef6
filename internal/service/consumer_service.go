package service

import (
	"context"
	"encoding/json"

	"prompt-optimiser-be/internal/dto"
	"prompt-optimiser-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

// SessionBroadcaster pushes a snapshot to everyone watching a session.
// *websocket.Hub satisfies it.
type SessionBroadcaster interface {
	Send(ctx context.Context, sessionID string, snapshot interface{})
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber  message.Subscriber
	topicName   string
	broadcaster SessionBroadcaster
	logger      logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	broadcaster SessionBroadcaster,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:  subscriber,
		topicName:   topicName,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Consume subscribes to the session topic and forwards updates until ctx ends.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.SessionChangedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal session message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // never retry malformed payloads
		return
	}

	cs.broadcaster.Send(ctx, payload.SessionId, payload.Snapshot)
	msg.Ack()
}
