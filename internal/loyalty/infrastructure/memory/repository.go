package memory

import (
	"context"
	"slices"

	"github.com/dmehra2102/restaurant-pos/internal/loyalty/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/memtx"
)

type Repository struct {
	db        *memtx.DB
	customers *memtx.Table[string, domain.Customer]
	ledger    *memtx.Log[domain.Transaction]
	ids       *memtx.Sequence
}

func New(db *memtx.DB) *Repository {
	return &Repository{
		db:        db,
		customers: memtx.NewTable[string, domain.Customer](db, nil),
		ledger:    memtx.NewLog[domain.Transaction](db),
		ids:       memtx.NewSequence(db),
	}
}

func (r *Repository) Create(ctx context.Context, c domain.Customer) error {
	var err error
	r.db.View(ctx, func() {
		if _, ok := r.customers.Get(c.ID); ok {
			err = apperr.Invalid("id", "customer %s already exists", c.ID)
			return
		}
		r.customers.Put(c.ID, c)
	})
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Customer, error) {
	var (
		c  domain.Customer
		ok bool
	)
	r.db.View(ctx, func() { c, ok = r.customers.Get(id) })
	if !ok {
		return domain.Customer{}, apperr.NotFound("customer", id)
	}
	return c, nil
}

func (r *Repository) LockForUpdate(ctx context.Context, id string) (domain.Customer, error) {
	return r.Get(ctx, id)
}

func (r *Repository) Save(ctx context.Context, c domain.Customer) error {
	var err error
	r.db.View(ctx, func() {
		if _, ok := r.customers.Get(c.ID); !ok {
			err = apperr.NotFound("customer", c.ID)
			return
		}
		r.customers.Put(c.ID, c)
	})
	return err
}

func (r *Repository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	r.db.View(ctx, func() {
		r.customers.Scan(func(id string, _ domain.Customer) bool {
			ids = append(ids, id)
			return true
		})
	})
	slices.Sort(ids)
	return ids, nil
}

func (r *Repository) AppendTransaction(ctx context.Context, t domain.Transaction) (domain.Transaction, error) {
	r.db.View(ctx, func() {
		t.ID = r.ids.Next()
		r.ledger.Append(t)
	})
	return t, nil
}

func (r *Repository) Transactions(ctx context.Context, customerID string) ([]domain.Transaction, error) {
	out := []domain.Transaction{}
	r.db.View(ctx, func() {
		r.ledger.Scan(func(t domain.Transaction) bool {
			if t.CustomerID == customerID {
				out = append(out, t)
			}
			return true
		})
	})
	return out, nil
}

func (r *Repository) SumPoints(ctx context.Context, customerID string) (int64, error) {
	var sum int64
	r.db.View(ctx, func() {
		r.ledger.Scan(func(t domain.Transaction) bool {
			if t.CustomerID == customerID {
				sum += t.Points
			}
			return true
		})
	})
	return sum, nil
}
