package service

import (
	"context"
	"sync"

	"prompt-optimiser-be/internal/pkg/logger"
	"prompt-optimiser-be/pkg/events"
	pktNats "prompt-optimiser-be/pkg/nats"
)

const auditDurable = "optimiser-audit"

// IAuditService tallies orchestrator outcomes from the audit stream.
type IAuditService interface {
	Start(ctx context.Context) error
	Handle(ctx context.Context, event events.Event) error
	Counts() map[string]int
}

type auditService struct {
	subscriber *pktNats.Subscriber
	logger     logger.ILogger

	mu     sync.Mutex
	counts map[string]int
}

func NewAuditService(subscriber *pktNats.Subscriber, logger logger.ILogger) IAuditService {
	return &auditService{
		subscriber: subscriber,
		logger:     logger,
		counts:     make(map[string]int),
	}
}

func (a *auditService) Start(ctx context.Context) error {
	if a.subscriber == nil {
		return nil
	}
	return a.subscriber.Subscribe(ctx, pktNats.Subject(">"), auditDurable, a.Handle)
}

func (a *auditService) Handle(ctx context.Context, event events.Event) error {
	a.mu.Lock()
	a.counts[event.EventType()]++
	a.mu.Unlock()

	if event.EventType() == events.TypeOptimiserFailed {
		payload := event.Payload()
		a.logger.Warn("AUDIT", "Optimiser request failed", map[string]interface{}{
			"kind":   payload["kind"],
			"mode":   payload["mode"],
			"vendor": payload["vendor"],
		})
	}
	return nil
}

func (a *auditService) Counts() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]int, len(a.counts))
	for k, v := range a.counts {
		out[k] = v
	}
	return out
}
