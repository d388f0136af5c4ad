package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dmehra2102/restaurant-pos/internal/broadcast"
)

const publishTimeout = 5 * time.Second

// Channel is the part of *amqp.Channel the sink uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Sink forwards broadcast events to a fanout exchange so displays outside
// this process (or a second POS node) see the same stream. The routing key
// is the event type.
type Sink struct {
	log      *slog.Logger
	exchange string
	timeout  time.Duration

	mu      sync.Mutex
	channel Channel
	conn    *amqp.Connection
}

func New(log *slog.Logger, ch Channel, exchange string) (*Sink, error) {
	err := ch.ExchangeDeclare(
		exchange, // name
		amqp.ExchangeFanout,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &Sink{log: log, exchange: exchange, timeout: publishTimeout, channel: ch}, nil
}

// Dial connects to url and declares the exchange.
func Dial(log *slog.Logger, url, exchange string) (*Sink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	s, err := New(log, ch, exchange)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	s.conn = conn
	return s, nil
}

func (s *Sink) Name() string { return "rabbitmq" }

func (s *Sink) Deliver(ctx context.Context, e broadcast.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	// A blocked broker (flow control, full socket) must not stall the fan-out.
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.channel.PublishWithContext(
		ctx,
		s.exchange,
		string(e.Type), // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Transient,
			ContentType:  "application/json",
			Type:         string(e.Type),
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.Type, err)
	}
	return nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.channel.(*amqp.Channel); ok {
		_ = c.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
