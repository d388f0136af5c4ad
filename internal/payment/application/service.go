package application

import (
	"context"
	"errors"
	"log/slog"

	orderdom "github.com/dmehra2102/restaurant-pos/internal/order/domain"
	"github.com/dmehra2102/restaurant-pos/internal/payment/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

// Orders is the order service entry point for gateway outcomes.
type Orders interface {
	ApplyPayment(ctx context.Context, orderID string, succeeded bool, ref, reason string) (orderdom.Order, error)
}

// ErrPermanent marks messages that will never apply; the consumer commits
// them instead of retrying.
var ErrPermanent = errors.New("payment event rejected")

type Service struct {
	log    *slog.Logger
	orders Orders
}

func NewService(log *slog.Logger, orders Orders) *Service {
	return &Service{log: log, orders: orders}
}

// Handle applies one gateway message to its order. A result for an order
// that already left CREATING (reaped, or a duplicate outcome) is rejected as
// permanent; store failures are returned as-is so the message is retried.
func (s *Service) Handle(ctx context.Context, eventType string, payload []byte) error {
	succeeded, err := domain.Succeeded(eventType)
	if err != nil {
		return errors.Join(ErrPermanent, err)
	}
	res, err := domain.Decode(payload)
	if err != nil {
		return errors.Join(ErrPermanent, err)
	}

	o, err := s.orders.ApplyPayment(ctx, res.OrderID, succeeded, res.Ref, res.Reason)
	switch {
	case err == nil:
		s.log.Info("payment applied", "order_id", o.ID, "status", o.Status, "payment_status", o.PaymentStatus)
		return nil
	case apperr.Is(err, apperr.KindNotFound), apperr.Is(err, apperr.KindInvalidTransition):
		s.log.Warn("payment result ignored", "order_id", res.OrderID, "event", eventType, "err", err)
		return errors.Join(ErrPermanent, err)
	default:
		return err
	}
}
