package kafka

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	orderdom "github.com/dmehra2102/restaurant-pos/internal/order/domain"
	"github.com/dmehra2102/restaurant-pos/internal/payment/application"
	"github.com/dmehra2102/restaurant-pos/pkg/tracing"
)

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Gateway reads order events and answers card and online orders on the
// payment topic through the simulator.
type Gateway struct {
	log    *slog.Logger
	reader Reader
	writer Writer
	topic  string
	sim    *application.Simulator
}

func NewGateway(log *slog.Logger, reader Reader, writer Writer, topic string, sim *application.Simulator) *Gateway {
	return &Gateway{log: log, reader: reader, writer: writer, topic: topic, sim: sim}
}

func (g *Gateway) Run(ctx context.Context) error {
	defer g.reader.Close()

	for {
		msg, err := g.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if tracing.HeaderValue(msg.Headers, "event_type") != orderdom.EventOrderCreated {
			_ = g.reader.CommitMessages(ctx, msg)
			continue
		}

		s, ok, err := g.sim.Settle(msg.Value)
		if err != nil {
			g.log.Error("order event unreadable", "offset", msg.Offset, "err", err)
			_ = g.reader.CommitMessages(ctx, msg)
			continue
		}
		if ok {
			out := kafka.Message{
				Topic: g.topic,
				Key:   []byte(s.OrderID),
				Value: s.Body,
				Headers: tracing.InjectKafkaHeaders(tracing.ExtractKafkaHeaders(ctx, msg.Headers), []kafka.Header{
					{Key: "event_type", Value: []byte(s.EventType)},
					{Key: "event_id", Value: []byte(uuid.NewString())},
				}),
			}
			if err := g.writer.WriteMessages(ctx, out); err != nil {
				g.log.Error("payment publish failed, offset left uncommitted", "order_id", s.OrderID, "err", err)
				continue
			}
		}
		_ = g.reader.CommitMessages(ctx, msg)
	}
}
