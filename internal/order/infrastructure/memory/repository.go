package memory

import (
	"context"
	"slices"
	"time"

	"github.com/dmehra2102/restaurant-pos/internal/order/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/memtx"
)

type Repository struct {
	db       *memtx.DB
	orders   *memtx.Table[string, domain.Order]
	history  *memtx.Log[domain.StatusChange]
	counters *memtx.Table[string, int]
}

func cloneOrder(o domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(o.Items))
	for i, item := range o.Items {
		item.Toppings = slices.Clone(item.Toppings)
		if item.Size != nil {
			size := *item.Size
			item.Size = &size
		}
		items[i] = item
	}
	o.Items = items
	return o
}

func New(db *memtx.DB) *Repository {
	return &Repository{
		db:       db,
		orders:   memtx.NewTable[string, domain.Order](db, cloneOrder),
		history:  memtx.NewLog[domain.StatusChange](db),
		counters: memtx.NewTable[string, int](db, nil),
	}
}

func (r *Repository) Create(ctx context.Context, o domain.Order) error {
	var err error
	r.db.View(ctx, func() {
		if _, ok := r.orders.Get(o.ID); ok {
			err = apperr.Invalid("id", "order %s already exists", o.ID)
			return
		}
		r.orders.Put(o.ID, o)
	})
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var (
		o  domain.Order
		ok bool
	)
	r.db.View(ctx, func() { o, ok = r.orders.Get(id) })
	if !ok {
		return domain.Order{}, apperr.NotFound("order", id)
	}
	return o, nil
}

func (r *Repository) GetForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return r.Get(ctx, id)
}

func (r *Repository) Update(ctx context.Context, o domain.Order, prevVersion int64) error {
	var err error
	r.db.View(ctx, func() {
		stored, ok := r.orders.Get(o.ID)
		switch {
		case !ok:
			err = apperr.NotFound("order", o.ID)
		case stored.Version != prevVersion:
			err = apperr.Conflict("order", o.ID)
		default:
			r.orders.Put(o.ID, o)
		}
	})
	return err
}

func (r *Repository) AppendHistory(ctx context.Context, c domain.StatusChange) error {
	r.db.View(ctx, func() { r.history.Append(c) })
	return nil
}

func (r *Repository) History(ctx context.Context, orderID string) ([]domain.StatusChange, error) {
	out := []domain.StatusChange{}
	r.db.View(ctx, func() {
		r.history.Scan(func(c domain.StatusChange) bool {
			if c.OrderID == orderID {
				out = append(out, c)
			}
			return true
		})
	})
	return out, nil
}

func (r *Repository) NextNumber(ctx context.Context, day time.Time) (int, error) {
	var n int
	r.db.View(ctx, func() {
		key := day.Format(time.DateOnly)
		n, _ = r.counters.Get(key)
		n++
		r.counters.Put(key, n)
	})
	return n, nil
}

func (r *Repository) ListByStatusBefore(ctx context.Context, status domain.OrderStatus, before time.Time) ([]string, error) {
	var ids []string
	r.db.View(ctx, func() {
		r.orders.Scan(func(id string, o domain.Order) bool {
			if o.Status == status && o.CreatedAt.Before(before) {
				ids = append(ids, id)
			}
			return true
		})
	})
	slices.Sort(ids)
	return ids, nil
}
