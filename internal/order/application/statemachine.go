package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/restaurant-pos/internal/broadcast"
	invapp "github.com/dmehra2102/restaurant-pos/internal/inventory/application"
	invdom "github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	"github.com/dmehra2102/restaurant-pos/internal/order/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/actor"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/config"
	"github.com/dmehra2102/restaurant-pos/pkg/metrics"
	"github.com/dmehra2102/restaurant-pos/pkg/outbox"
)

type transitionOptions struct {
	paymentStatus   domain.PaymentStatus
	paymentRef      string
	reason          string
	expectedVersion int64
}

type TransitionOption func(*transitionOptions)

// WithPayment records a gateway outcome on the order along with the
// transition.
func WithPayment(status domain.PaymentStatus, ref string) TransitionOption {
	return func(o *transitionOptions) {
		o.paymentStatus = status
		o.paymentRef = ref
	}
}

func WithReason(reason string) TransitionOption {
	return func(o *transitionOptions) { o.reason = reason }
}

// WithExpectedVersion fails the transition with a ConcurrencyConflictError
// when the order has moved past version v.
func WithExpectedVersion(v int64) TransitionOption {
	return func(o *transitionOptions) { o.expectedVersion = v }
}

// StateMachine is the only writer of order status. Each transition and its
// side effects commit or roll back together; broadcasts go out after commit.
type StateMachine struct {
	log       *slog.Logger
	tx        Transactor
	orders    OrderRepository
	stock     StockDeducter
	promos    Promotions
	loyalty   Loyalty
	outbox    outbox.Writer
	publisher broadcast.Publisher
	deductAt  string
	tracer    trace.Tracer
	now       func() time.Time
}

type Deps struct {
	Tx        Transactor
	Orders    OrderRepository
	Stock     StockDeducter
	Promos    Promotions
	Loyalty   Loyalty
	Catalog   Catalog
	Outbox    outbox.Writer
	Publisher broadcast.Publisher
}

func NewStateMachine(log *slog.Logger, d Deps, deductAt string) *StateMachine {
	if deductAt == "" {
		deductAt = config.DeductAtCompletion
	}
	return &StateMachine{
		log:       log,
		tx:        d.Tx,
		orders:    d.Orders,
		stock:     d.Stock,
		promos:    d.Promos,
		loyalty:   d.Loyalty,
		outbox:    d.Outbox,
		publisher: d.Publisher,
		deductAt:  deductAt,
		tracer:    otel.Tracer("order-statemachine"),
		now:       time.Now,
	}
}

// Transition moves orderID to target on behalf of who.
func (m *StateMachine) Transition(ctx context.Context, orderID string, target domain.OrderStatus, who actor.Actor, opts ...TransitionOption) (domain.Order, error) {
	var o transitionOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := m.tracer.Start(ctx, "Order.Transition", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.target", string(target)),
		attribute.String("actor", who.String()),
	))
	defer span.End()

	var (
		out    domain.Order
		events []broadcast.Event
	)
	err := m.tx.WithinTx(ctx, func(ctx context.Context) error {
		events = events[:0]
		order, err := m.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.expectedVersion != 0 && order.Version != o.expectedVersion {
			return apperr.Conflict("order", orderID)
		}
		if !target.Valid() || !domain.CanTransition(order.Status, target) {
			return &apperr.InvalidTransitionError{From: string(order.Status), To: string(target)}
		}

		from := order.Status
		sideEvents, err := m.applySideEffects(ctx, &order, target, who, o)
		if err != nil {
			return err
		}
		events = append(events, sideEvents...)

		now := m.now().UTC()
		prev := order.Version
		order.Status = target
		order.Version++
		order.UpdatedAt = now
		switch target {
		case domain.StatusCompleted:
			order.CompletedAt = &now
		case domain.StatusCancelled:
			order.CancelledAt = &now
		}
		if err := m.orders.Update(ctx, order, prev); err != nil {
			return err
		}
		if err := m.orders.AppendHistory(ctx, domain.StatusChange{
			OrderID:   order.ID,
			From:      from,
			To:        target,
			ActorID:   who.ID,
			ActorKind: string(who.Kind),
			Reason:    o.reason,
			At:        now,
		}); err != nil {
			return err
		}

		ev, err := outbox.NewEvent(ctx, "order", order.ID, domain.EventOrderStatusChanged, domain.OrderStatusChanged{
			OrderID:     order.ID,
			OrderNumber: order.Number,
			From:        from,
			To:          target,
			Version:     order.Version,
			Actor:       who.String(),
			Reason:      o.reason,
		})
		if err != nil {
			return err
		}
		if err := m.outbox.Enqueue(ctx, ev); err != nil {
			return err
		}

		events = append([]broadcast.Event{broadcast.OrderUpdated(order.ID, order.Number, string(target))}, events...)
		out = order
		return nil
	})
	metrics.RecordTransition(string(target), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Order{}, fmt.Errorf("transition order %s to %s: %w", orderID, target, err)
	}

	m.log.Info("order transitioned", "order_id", out.ID, "number", out.Number, "status", out.Status, "version", out.Version, "actor", who.String())
	m.publisher.Publish(events...)
	return out, nil
}

func (m *StateMachine) applySideEffects(ctx context.Context, o *domain.Order, target domain.OrderStatus, who actor.Actor, opts transitionOptions) ([]broadcast.Event, error) {
	var events []broadcast.Event
	now := m.now().UTC()

	if opts.paymentStatus != "" {
		o.PaymentStatus = opts.paymentStatus
		if opts.paymentRef != "" {
			o.PaymentRef = opts.paymentRef
		}
	}

	switch target {
	case domain.StatusPending:
		if o.Status == domain.StatusCreating && opts.paymentStatus == "" {
			o.PaymentStatus = domain.PaymentPaid
		}
		if o.PaymentStatus == domain.PaymentPaid && o.PaidAt == nil {
			o.PaidAt = &now
		}

	case domain.StatusConfirmed:
		if m.deductAt == config.DeductAtConfirmation {
			ev, err := m.deduct(ctx, o, who)
			if err != nil {
				return nil, err
			}
			events = append(events, ev...)
		}

	case domain.StatusCompleted:
		ev, err := m.deduct(ctx, o, who)
		if err != nil {
			return nil, err
		}
		events = append(events, ev...)

		if o.PromotionCode != "" {
			if err := m.promos.Commit(ctx, o.PromotionCode, o.CustomerID, o.ID, o.DiscountAmount); err != nil {
				return nil, err
			}
		}
		if o.CustomerID != "" {
			if _, err := m.loyalty.Earn(ctx, o.CustomerID, o.TotalAmount, o.ID); err != nil {
				return nil, err
			}
		}
		if o.PaymentStatus != domain.PaymentPaid {
			o.PaymentStatus = domain.PaymentPaid
			o.PaidAt = &now
		}

	case domain.StatusCancelled:
		res, err := m.stock.Reverse(ctx, o.ID, who)
		switch {
		case errors.Is(err, invapp.ErrNotDeducted):
		case err != nil:
			return nil, err
		case !res.Replayed:
			events = append(events, invapp.StockEvents(res)...)
		}
		if o.PromotionCode != "" {
			if err := m.promos.Release(ctx, o.ID); err != nil {
				return nil, err
			}
		}
		if o.CustomerID != "" && o.PointsRedeemed > 0 {
			if _, err := m.loyalty.Refund(ctx, o.CustomerID, o.PointsRedeemed, o.ID); err != nil {
				return nil, err
			}
		}
	}
	return events, nil
}

func (m *StateMachine) deduct(ctx context.Context, o *domain.Order, who actor.Actor) ([]broadcast.Event, error) {
	lines := make([]invdom.SaleLine, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, invdom.SaleLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	res, err := m.stock.Deduct(ctx, o.ID, lines, who)
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		return nil, nil
	}
	return invapp.StockEvents(res), nil
}
