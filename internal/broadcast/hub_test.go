package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/restaurant-pos/pkg/logging"
)

type chanSubscriber struct {
	name string
	got  chan Event
	err  error
}

func (s *chanSubscriber) Name() string { return s.name }

func (s *chanSubscriber) Deliver(_ context.Context, e Event) error {
	if s.err != nil {
		return s.err
	}
	s.got <- e
	return nil
}

func TestPublishNeverBlocks(t *testing.T) {
	h := NewHub(logging.Discard(), 2)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish(OrderUpdated("o-1", "ORD-1", "PENDING"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full buffer")
	}
	assert.Len(t, h.events, 2)
}

func TestRunDeliversToEverySubscriberDespiteFailures(t *testing.T) {
	h := NewHub(logging.Discard(), 16)
	good := &chanSubscriber{name: "good", got: make(chan Event, 4)}
	bad := &chanSubscriber{name: "bad", err: errors.New("socket closed")}
	h.Subscribe(good)
	unsubscribe := h.Subscribe(bad)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = h.Run(ctx)
	}()

	h.Publish(
		StockUpdated("ingredient", "milk", decimal.NewFromInt(100)),
		AlertRaised("a-1", "ingredient", "milk", "low_stock"),
	)

	for _, want := range []Type{TypeStockUpdated, TypeAlertRaised} {
		select {
		case e := <-good.got:
			assert.Equal(t, want, e.Type)
		case <-time.After(time.Second):
			t.Fatalf("event %s not delivered", want)
		}
	}

	cancel()
	wg.Wait()
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub(logging.Discard(), 4)
	s := &chanSubscriber{name: "display", got: make(chan Event, 1)}
	unsubscribe := h.Subscribe(s)
	unsubscribe()

	h.deliver(context.Background(), OrderUpdated("o-1", "ORD-1", "READY"))
	assert.Empty(t, s.got)
}

func TestEventJSONShape(t *testing.T) {
	raw, err := json.Marshal(StockUpdated("ingredient", "milk", decimal.RequireFromString("40.5")))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "stock_updated", got["type"])
	payload := got["payload"].(map[string]any)
	assert.Equal(t, "milk", payload["entityId"])
	assert.Equal(t, "40.5", payload["newLevel"])
}
