package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/restaurant-pos/internal/broadcast"
	"github.com/dmehra2102/restaurant-pos/internal/order/domain"
	promodom "github.com/dmehra2102/restaurant-pos/internal/promotion/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/actor"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/outbox"
)

// maxStatusAttempts bounds UpdateOrderStatus retries after a version
// conflict.
const maxStatusAttempts = 3

type Service struct {
	log       *slog.Logger
	tx        Transactor
	orders    OrderRepository
	catalog   Catalog
	promos    Promotions
	loyalty   Loyalty
	outbox    outbox.Writer
	publisher broadcast.Publisher
	machine   *StateMachine
	loc       *time.Location
	now       func() time.Time
}

func NewService(log *slog.Logger, d Deps, machine *StateMachine, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		log:       log,
		tx:        d.Tx,
		orders:    d.Orders,
		catalog:   d.Catalog,
		promos:    d.Promos,
		loyalty:   d.Loyalty,
		outbox:    d.Outbox,
		publisher: d.Publisher,
		machine:   machine,
		loc:       loc,
		now:       time.Now,
	}
}

func (s *Service) Machine() *StateMachine { return s.machine }

type ItemInput struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Size      *domain.Option  `json:"size,omitempty"`
	Toppings  []domain.Option `json:"toppings,omitempty"`
	Note      string          `json:"note,omitempty"`
}

type CreateOrderInput struct {
	Items          []ItemInput          `json:"items"`
	PaymentMethod  domain.PaymentMethod `json:"paymentMethod"`
	CustomerID     string               `json:"customerId,omitempty"`
	PromotionCode  string               `json:"promotionCode,omitempty"`
	PointsToRedeem int64                `json:"pointsToRedeem,omitempty"`
}

func (in CreateOrderInput) validate() error {
	if len(in.Items) == 0 {
		return apperr.Invalid("items", "at least one item is required")
	}
	for _, item := range in.Items {
		if item.ProductID == "" {
			return apperr.Invalid("productId", "is required")
		}
		if item.Quantity <= 0 {
			return apperr.Invalid("quantity", "must be positive for product %s", item.ProductID)
		}
	}
	if !in.PaymentMethod.Valid() {
		return apperr.Invalid("paymentMethod", "unknown payment method %q", in.PaymentMethod)
	}
	if in.PointsToRedeem < 0 {
		return apperr.Invalid("pointsToRedeem", "must not be negative")
	}
	if in.PointsToRedeem > 0 && in.CustomerID == "" {
		return apperr.Invalid("customerId", "is required to redeem points")
	}
	return nil
}

// CreateOrder prices the items from the catalog, applies the promotion (read
// only) and the points redemption, and stores the order. Cash orders start
// PENDING; card and online orders wait in CREATING for the gateway.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if err := in.validate(); err != nil {
		return domain.Order{}, err
	}
	who := actor.OrSystem(ctx)

	ids := make([]string, 0, len(in.Items))
	for _, item := range in.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.catalog.Products(ctx, ids)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.now().UTC()
	o := domain.Order{
		ID:            uuid.NewString(),
		Status:        domain.StatusCreating,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: domain.PaymentUnpaid,
		CustomerID:    in.CustomerID,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.PaymentMethod == domain.PaymentCash {
		o.Status = domain.StatusPending
	}

	lines := make([]promodom.OrderLine, 0, len(in.Items))
	for _, item := range in.Items {
		p := products[item.ProductID]
		priced, err := domain.NewItem(p.ID, p.Name, p.Price, item.Quantity, item.Size, item.Toppings, item.Note)
		if err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, priced)
		lines = append(lines, promodom.OrderLine{ProductID: p.ID, CategoryID: p.CategoryID})
	}
	o.Subtotal = domain.Subtotal(o.Items)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if in.PromotionCode != "" {
			oc := promodom.OrderContext{Amount: o.Subtotal, Lines: lines, CustomerID: in.CustomerID, At: now}
			if in.CustomerID != "" {
				c, err := s.loyalty.Customer(ctx, in.CustomerID)
				if err != nil {
					return err
				}
				oc.MembershipLevel = c.MembershipLevel
			}
			res, err := s.promos.Validate(ctx, in.PromotionCode, oc)
			if err != nil {
				return err
			}
			o.PromotionCode = res.Promotion.Code
			o.DiscountAmount = res.DiscountAmount
		}

		if in.PointsToRedeem > 0 {
			discount, err := s.loyalty.Redeem(ctx, in.CustomerID, in.PointsToRedeem, o.Subtotal-o.DiscountAmount, o.ID)
			if err != nil {
				return err
			}
			o.PointsRedeemed = in.PointsToRedeem
			o.PointsDiscount = discount
		}
		o.TotalAmount = o.Subtotal - o.DiscountAmount - o.PointsDiscount

		n, err := s.orders.NextNumber(ctx, now.In(s.loc))
		if err != nil {
			return err
		}
		o.Number = domain.FormatNumber(now.In(s.loc), n)

		if err := s.orders.Create(ctx, o); err != nil {
			return err
		}
		if err := s.orders.AppendHistory(ctx, domain.StatusChange{
			OrderID:   o.ID,
			To:        o.Status,
			ActorID:   who.ID,
			ActorKind: string(who.Kind),
			Reason:    "order created",
			At:        now,
		}); err != nil {
			return err
		}

		ev, err := outbox.NewEvent(ctx, "order", o.ID, domain.EventOrderCreated, domain.OrderCreated{
			OrderID:       o.ID,
			OrderNumber:   o.Number,
			Status:        o.Status,
			CustomerID:    o.CustomerID,
			TotalAmount:   o.TotalAmount,
			PaymentMethod: string(o.PaymentMethod),
			Items:         o.Items,
		})
		if err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, ev)
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.log.Info("order created", "order_id", o.ID, "number", o.Number, "status", o.Status, "total", o.TotalAmount, "actor", who.String())
	s.publisher.Publish(broadcast.OrderUpdated(o.ID, o.Number, string(o.Status)))
	return o, nil
}

// UpdateOrderStatus transitions the order for the context actor. A version
// conflict re-reads the order: if another caller already reached target the
// call is a no-op, otherwise it retries.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, target domain.OrderStatus, opts ...TransitionOption) (domain.Order, error) {
	return s.transition(ctx, orderID, target, actor.OrSystem(ctx), opts...)
}

func (s *Service) transition(ctx context.Context, orderID string, target domain.OrderStatus, who actor.Actor, opts ...TransitionOption) (domain.Order, error) {
	var lastErr error
	for attempt := 1; attempt <= maxStatusAttempts; attempt++ {
		current, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return domain.Order{}, err
		}
		if current.Status == target {
			return current, nil
		}

		o, err := s.machine.Transition(ctx, orderID, target, who, append(opts[:len(opts):len(opts)], WithExpectedVersion(current.Version))...)
		if err == nil {
			return o, nil
		}
		if !apperr.Is(err, apperr.KindConcurrencyConflict) {
			return domain.Order{}, err
		}
		lastErr = err
		s.log.Warn("order transition conflict", "order_id", orderID, "target", target, "attempt", attempt)
	}
	return domain.Order{}, lastErr
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.orders.Get(ctx, id)
}

func (s *Service) History(ctx context.Context, id string) ([]domain.StatusChange, error) {
	if _, err := s.orders.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.orders.History(ctx, id)
}

// ApplyPayment records a gateway result: success moves CREATING to PENDING,
// failure cancels the order.
func (s *Service) ApplyPayment(ctx context.Context, orderID string, succeeded bool, ref, reason string) (domain.Order, error) {
	if succeeded {
		return s.transition(ctx, orderID, domain.StatusPending, actor.PaymentGateway,
			WithPayment(domain.PaymentPaid, ref), WithReason("payment succeeded"))
	}
	if reason == "" {
		reason = "payment failed"
	}
	return s.transition(ctx, orderID, domain.StatusCancelled, actor.PaymentGateway,
		WithPayment(domain.PaymentFailed, ref), WithReason(reason))
}
