package application

import (
	"context"
	"errors"

	"github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
)

// ErrNotDeducted is returned by Reverse when no deduction was recorded for
// the order.
var ErrNotDeducted = errors.New("no stock deduction recorded for order")

// Transactor runs fn in one unit of work; nested calls are savepoints.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type StockFilter struct {
	EntityType domain.EntityType
	// LowOnly keeps rows at or below their min level.
	LowOnly bool
}

type StockRepository interface {
	Get(ctx context.Context, key domain.StockKey) (domain.StockLevel, error)
	// LockForUpdate locks the existing rows among keys in key order for the
	// rest of the transaction. Missing keys are absent from the result.
	LockForUpdate(ctx context.Context, keys []domain.StockKey) (map[domain.StockKey]domain.StockLevel, error)
	Create(ctx context.Context, level domain.StockLevel) error
	Save(ctx context.Context, level domain.StockLevel) error
	List(ctx context.Context, filter StockFilter) ([]domain.StockLevel, error)
	AppendTransaction(ctx context.Context, tx domain.StockTransaction) (domain.StockTransaction, error)
	// Transactions returns the newest entries first.
	Transactions(ctx context.Context, key domain.StockKey, limit int) ([]domain.StockTransaction, error)
}

type RecipeRepository interface {
	// ByProduct returns the product's recipe lines ordered by position.
	ByProduct(ctx context.Context, productID string) ([]domain.Recipe, error)
	Put(ctx context.Context, r domain.Recipe) error
	Delete(ctx context.Context, productID, ingredientID string) error
}

type AlertRepository interface {
	Get(ctx context.Context, id string) (domain.Alert, error)
	// FindUnread returns the unread alert for key, or nil.
	FindUnread(ctx context.Context, key domain.StockKey) (*domain.Alert, error)
	Create(ctx context.Context, a domain.Alert) error
	Update(ctx context.Context, a domain.Alert) error
	ListUnread(ctx context.Context) ([]domain.Alert, error)
}

type DeductionRepository interface {
	// Claim inserts an empty record for orderID if none exists and reports
	// whether this call created it. A concurrent claimer waits for the
	// winner's transaction to finish.
	Claim(ctx context.Context, orderID string) (bool, error)
	GetForUpdate(ctx context.Context, orderID string) (domain.Deduction, error)
	Save(ctx context.Context, d domain.Deduction) error
}
