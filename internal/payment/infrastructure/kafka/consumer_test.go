package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderdom "github.com/dmehra2102/restaurant-pos/internal/order/domain"
	"github.com/dmehra2102/restaurant-pos/internal/payment/application"
	"github.com/dmehra2102/restaurant-pos/pkg/idempotency"
	"github.com/dmehra2102/restaurant-pos/pkg/logging"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type countingOrders struct {
	applied  map[string]int
	failures map[string]int
	attempts map[string]int
}

func (o *countingOrders) ApplyPayment(_ context.Context, orderID string, succeeded bool, ref, reason string) (orderdom.Order, error) {
	if o.attempts == nil {
		o.attempts = map[string]int{}
	}
	o.attempts[orderID]++
	if o.failures[orderID] > 0 {
		o.failures[orderID]--
		return orderdom.Order{}, assert.AnError
	}
	o.applied[orderID]++
	return orderdom.Order{ID: orderID}, nil
}

func message(offset int64, eventID, eventType, body string) kafka.Message {
	headers := []kafka.Header{{Key: "event_type", Value: []byte(eventType)}}
	if eventID != "" {
		headers = append(headers, kafka.Header{Key: "event_id", Value: []byte(eventID)})
	}
	return kafka.Message{Topic: "payment.events", Offset: offset, Value: []byte(body), Headers: headers}
}

func newConsumer(t *testing.T, reader *fakeReader, orders *countingOrders) *Consumer {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	svc := application.NewService(logging.Discard(), orders)
	c := NewConsumer(logging.Discard(), reader, svc, idempotency.NewStore(rdb, time.Hour))
	c.backoff = time.Millisecond
	return c
}

func runUntilDrained(t *testing.T, c *Consumer, reader *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, c.Run(ctx))
	assert.True(t, reader.closed)
}

func TestRedeliveredEventAppliedOnce(t *testing.T) {
	body := `{"orderId":"o-1","ref":"tx-1"}`
	reader := &fakeReader{msgs: []kafka.Message{
		message(1, "evt-1", "PaymentSucceeded", body),
		message(7, "evt-1", "PaymentSucceeded", body),
	}}
	orders := &countingOrders{applied: map[string]int{}}

	runUntilDrained(t, newConsumer(t, reader, orders), reader)

	assert.Equal(t, 1, orders.applied["o-1"])
	assert.Equal(t, []int64{1, 7}, reader.committed)
}

func TestPermanentFailureIsCommitted(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		message(3, "", "PaymentRefunded", `{"orderId":"o-1"}`),
	}}
	orders := &countingOrders{applied: map[string]int{}}

	runUntilDrained(t, newConsumer(t, reader, orders), reader)

	assert.Empty(t, orders.applied)
	assert.Equal(t, []int64{3}, reader.committed)
}

func TestTransientFailureRetriesBeforeMovingOn(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		message(4, "evt-2", "PaymentSucceeded", `{"orderId":"o-2","ref":"tx-2"}`),
		message(5, "evt-3", "PaymentSucceeded", `{"orderId":"o-3","ref":"tx-3"}`),
	}}
	orders := &countingOrders{applied: map[string]int{}, failures: map[string]int{"o-2": 2}}

	runUntilDrained(t, newConsumer(t, reader, orders), reader)

	assert.Equal(t, map[string]int{"o-2": 1, "o-3": 1}, orders.applied)
	assert.Equal(t, 3, orders.attempts["o-2"])
	assert.Equal(t, []int64{4, 5}, reader.committed)
}

func TestShutdownDuringRetryLeavesMessageUncommitted(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		message(4, "evt-2", "PaymentSucceeded", `{"orderId":"o-2","ref":"tx-2"}`),
		message(5, "evt-3", "PaymentSucceeded", `{"orderId":"o-3","ref":"tx-3"}`),
	}}
	orders := &countingOrders{applied: map[string]int{}, failures: map[string]int{"o-2": 1 << 20}}
	c := newConsumer(t, reader, orders)

	runUntilDrained(t, c, reader)

	assert.Empty(t, orders.applied)
	assert.Empty(t, reader.committed)
	assert.Zero(t, orders.attempts["o-3"])

	seen, err := c.idem.Seen(context.Background(), c.idem.EventKey("payment", "evt-2"))
	require.NoError(t, err)
	assert.False(t, seen, "claim must be released for redelivery")
}
