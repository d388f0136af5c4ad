package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmehra2102/restaurant-pos/pkg/tracing"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// MaxRetries is how many failed dispatches an event gets before it is parked
// as failed.
const MaxRetries = 5

type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RelayID       string
	LeaseUntil    time.Time
	RetryCount    int
	LastError     *string
}

// Writer appends events to the outbox inside the caller's transaction.
type Writer interface {
	Enqueue(ctx context.Context, events ...Event) error
}

// NewEvent encodes payload as JSON and captures the current trace context.
func NewEvent(ctx context.Context, aggregateType, aggregateID, eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       raw,
		Headers:       map[string]string{"aggregate_type": aggregateType},
		Traceparent:   tracing.Traceparent(ctx),
		Status:        StatusPending,
	}, nil
}
