package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "OPTIMISER_COMPLETED").
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

const (
	TypeOptimiserCompleted = "OPTIMISER_COMPLETED"
	TypeOptimiserFailed    = "OPTIMISER_FAILED"
	TypeOptimiserThrottled = "OPTIMISER_THROTTLED"
)

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
