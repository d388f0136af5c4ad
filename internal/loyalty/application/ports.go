package application

import (
	"context"

	"github.com/dmehra2102/restaurant-pos/internal/loyalty/domain"
)

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Repository interface {
	Create(ctx context.Context, c domain.Customer) error
	Get(ctx context.Context, id string) (domain.Customer, error)
	// LockForUpdate holds the customer row until the transaction ends.
	LockForUpdate(ctx context.Context, id string) (domain.Customer, error)
	Save(ctx context.Context, c domain.Customer) error
	ListIDs(ctx context.Context) ([]string, error)
	AppendTransaction(ctx context.Context, t domain.Transaction) (domain.Transaction, error)
	// Transactions returns the ledger oldest first.
	Transactions(ctx context.Context, customerID string) ([]domain.Transaction, error)
	SumPoints(ctx context.Context, customerID string) (int64, error)
}
