package application

import (
	"context"

	"github.com/dmehra2102/restaurant-pos/internal/promotion/domain"
)

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Repository interface {
	Create(ctx context.Context, p domain.Promotion) error
	Update(ctx context.Context, p domain.Promotion) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (domain.Promotion, error)
	// GetByCode looks up the normalised code.
	GetByCode(ctx context.Context, code string) (domain.Promotion, error)
	// LockByCode and LockByID hold the promotion row until the transaction ends.
	LockByCode(ctx context.Context, code string) (domain.Promotion, error)
	LockByID(ctx context.Context, id string) (domain.Promotion, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Promotion, error)

	CountCustomerUsages(ctx context.Context, promotionID, customerID string) (int, error)
	InsertUsage(ctx context.Context, u domain.Usage) error
	// UsageByOrder returns the usage recorded for orderID, or nil.
	UsageByOrder(ctx context.Context, orderID string) (*domain.Usage, error)
	DeleteUsage(ctx context.Context, id int64) error
	UsageStats(ctx context.Context, promotionID string) (distinctCustomers int, totalDiscount int64, err error)
}
