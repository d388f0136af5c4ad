package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmehra2102/restaurant-pos/pkg/metrics"
)

// Subscriber is a transport that receives every published event.
type Subscriber interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

type Hub struct {
	log    *slog.Logger
	events chan Event

	mu   sync.RWMutex
	subs map[string]Subscriber
}

func NewHub(log *slog.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{
		log:    log,
		events: make(chan Event, buffer),
		subs:   make(map[string]Subscriber),
	}
}

// Publish enqueues events; when the buffer is full the event is dropped.
func (h *Hub) Publish(events ...Event) {
	for _, e := range events {
		select {
		case h.events <- e:
			metrics.RecordBroadcast(string(e.Type), "queued")
		default:
			metrics.RecordBroadcast(string(e.Type), "dropped")
			h.log.Warn("broadcast buffer full, dropping event", "type", e.Type)
		}
	}
}

// Subscribe registers s under its name, replacing any previous subscriber
// with that name. The returned func unregisters it.
func (h *Hub) Subscribe(s Subscriber) func() {
	h.mu.Lock()
	h.subs[s.Name()] = s
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		if h.subs[s.Name()] == s {
			delete(h.subs, s.Name())
		}
		h.mu.Unlock()
	}
}

func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.log.Info("broadcast hub stopping")
			return nil
		case e := <-h.events:
			h.deliver(ctx, e)
		}
	}
}

func (h *Hub) deliver(ctx context.Context, e Event) {
	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		if err := s.Deliver(ctx, e); err != nil {
			metrics.RecordBroadcast(string(e.Type), "failed")
			h.log.Warn("broadcast delivery failed", "subscriber", s.Name(), "type", e.Type, "err", err)
			continue
		}
		metrics.RecordBroadcast(string(e.Type), "delivered")
	}
}
