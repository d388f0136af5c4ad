package application

import (
	"context"
	"time"

	catalogdom "github.com/dmehra2102/restaurant-pos/internal/catalog/domain"
	invdom "github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	loyaltydom "github.com/dmehra2102/restaurant-pos/internal/loyalty/domain"
	"github.com/dmehra2102/restaurant-pos/internal/order/domain"
	promodom "github.com/dmehra2102/restaurant-pos/internal/promotion/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/actor"
)

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type OrderRepository interface {
	Create(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, id string) (domain.Order, error)
	// GetForUpdate holds the order row until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (domain.Order, error)
	// Update stores o if the stored version still equals prevVersion and
	// returns a ConcurrencyConflictError otherwise.
	Update(ctx context.Context, o domain.Order, prevVersion int64) error
	AppendHistory(ctx context.Context, c domain.StatusChange) error
	History(ctx context.Context, orderID string) ([]domain.StatusChange, error)
	// NextNumber allocates the next per-day sequence number, starting at 1.
	NextNumber(ctx context.Context, day time.Time) (int, error)
	// ListByStatusBefore returns ids of orders in status created before t.
	ListByStatusBefore(ctx context.Context, status domain.OrderStatus, before time.Time) ([]string, error)
}

// StockDeducter is the slice of the inventory deduction engine the state
// machine drives.
type StockDeducter interface {
	Deduct(ctx context.Context, orderID string, lines []invdom.SaleLine, who actor.Actor) (invdom.DeductionResult, error)
	Reverse(ctx context.Context, orderID string, who actor.Actor) (invdom.DeductionResult, error)
}

type Promotions interface {
	Validate(ctx context.Context, code string, oc promodom.OrderContext) (promodom.Result, error)
	Commit(ctx context.Context, code, customerID, orderID string, discount int64) error
	Release(ctx context.Context, orderID string) error
}

type Loyalty interface {
	Customer(ctx context.Context, id string) (loyaltydom.Customer, error)
	Earn(ctx context.Context, customerID string, netAmount int64, orderID string) (loyaltydom.Customer, error)
	Redeem(ctx context.Context, customerID string, points, orderAmount int64, orderID string) (int64, error)
	Refund(ctx context.Context, customerID string, points int64, orderID string) (loyaltydom.Customer, error)
}

type Catalog interface {
	Products(ctx context.Context, ids []string) (map[string]catalogdom.Product, error)
}
