package application

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	orderdom "github.com/dmehra2102/restaurant-pos/internal/order/domain"
	"github.com/dmehra2102/restaurant-pos/internal/payment/domain"
)

// Simulator stands in for the card gateway in development. It settles every
// card or online order and declines totals above limit.
type Simulator struct {
	log   *slog.Logger
	limit int64
	ref   func() string
}

func NewSimulator(log *slog.Logger, limit int64) *Simulator {
	return &Simulator{log: log, limit: limit, ref: func() string { return "sim-" + uuid.NewString() }}
}

// Settlement is the gateway answer for one order.
type Settlement struct {
	EventType string
	OrderID   string
	Body      []byte
}

// Settle answers one OrderCreated payload. ok is false for cash orders,
// which never wait on the gateway.
func (s *Simulator) Settle(payload []byte) (Settlement, bool, error) {
	var created orderdom.OrderCreated
	if err := json.Unmarshal(payload, &created); err != nil {
		return Settlement{}, false, err
	}
	if created.PaymentMethod == string(orderdom.PaymentCash) || created.Status != orderdom.StatusCreating {
		return Settlement{}, false, nil
	}

	res := domain.Result{OrderID: created.OrderID, Ref: s.ref()}
	eventType := domain.EventPaymentSucceeded
	if s.limit > 0 && created.TotalAmount > s.limit {
		eventType = domain.EventPaymentFailed
		res.Reason = fmt.Sprintf("amount %d over limit %d", created.TotalAmount, s.limit)
	}
	body, err := json.Marshal(res)
	if err != nil {
		return Settlement{}, false, err
	}
	s.log.Info("payment simulated", "order_id", created.OrderID, "outcome", eventType)
	return Settlement{EventType: eventType, OrderID: created.OrderID, Body: body}, true, nil
}
