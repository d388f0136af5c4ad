package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/restaurant-pos/internal/payment/application"
	"github.com/dmehra2102/restaurant-pos/pkg/idempotency"
	"github.com/dmehra2102/restaurant-pos/pkg/tracing"
)

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

type Consumer struct {
	log     *slog.Logger
	reader  Reader
	svc     *application.Service
	idem    *idempotency.Store
	tracer  trace.Tracer
	backoff time.Duration
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewConsumer(log *slog.Logger, reader Reader, svc *application.Service, idem *idempotency.Store) *Consumer {
	return &Consumer{
		log:     log,
		reader:  reader,
		svc:     svc,
		idem:    idem,
		tracer:  otel.Tracer("payment-consumer"),
		backoff: initialBackoff,
	}
}

// Run consumes gateway results until ctx ends. Messages carrying an
// event_id header are deduplicated by it; others by broker position.
// A transiently failing message is retried in place, so nothing after it is
// committed before it is.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		c.handle(ctx, msg)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	key := c.key(msg)
	var seen bool
	for wait := c.backoff; ; wait = next(wait) {
		var err error
		if seen, err = c.idem.Seen(ctx, key); err == nil {
			break
		}
		c.log.Error("idempotency check failed", "key", key, "err", err, "retryIn", wait)
		if !sleep(ctx, wait) {
			return
		}
	}
	if seen {
		c.log.Info("duplicate message skipped", "key", key)
		c.commit(ctx, msg)
		return
	}

	eventType := tracing.HeaderValue(msg.Headers, "event_type")
	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumePaymentResult",
		trace.WithAttributes(attribute.String("event.type", eventType), attribute.String("message.key", string(msg.Key))))
	defer span.End()

	for wait := c.backoff; ; wait = next(wait) {
		err := c.svc.Handle(msgCtx, eventType, msg.Value)
		switch {
		case err == nil:
			c.commit(ctx, msg)
			return
		case errors.Is(err, application.ErrPermanent):
			span.RecordError(err)
			c.log.Warn("payment message dropped", "key", key, "err", err)
			c.commit(ctx, msg)
			return
		}

		span.RecordError(err)
		c.log.Error("payment message failed, retrying", "key", key, "err", err, "retryIn", wait)
		if !sleep(ctx, wait) {
			span.SetStatus(codes.Error, err.Error())
			// Left uncommitted; the next owner of the partition redelivers it.
			if ferr := c.idem.Forget(context.WithoutCancel(ctx), key); ferr != nil {
				c.log.Error("idempotency release failed", "key", key, "err", ferr)
			}
			return
		}
	}
}

func next(d time.Duration) time.Duration {
	return min(d*2, maxBackoff)
}

// sleep waits for d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) key(msg kafka.Message) string {
	if id := tracing.HeaderValue(msg.Headers, "event_id"); id != "" {
		return c.idem.EventKey("payment", id)
	}
	return c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.log.Error("commit failed", "offset", msg.Offset, "err", err)
	}
}
