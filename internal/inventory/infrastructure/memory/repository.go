// Package memory implements the inventory repositories on memtx.
package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/dmehra2102/restaurant-pos/internal/inventory/application"
	"github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/memtx"
)

type Repositories struct {
	Stock      *StockRepository
	Recipes    *RecipeRepository
	Alerts     *AlertRepository
	Deductions *DeductionRepository
}

func New(db *memtx.DB) *Repositories {
	return &Repositories{
		Stock: &StockRepository{
			db:     db,
			levels: memtx.NewTable[domain.StockKey, domain.StockLevel](db, nil),
			txs:    memtx.NewLog[domain.StockTransaction](db),
			ids:    memtx.NewSequence(db),
		},
		Recipes: &RecipeRepository{
			db:   db,
			rows: memtx.NewTable[recipeKey, domain.Recipe](db, nil),
		},
		Alerts: &AlertRepository{
			db:   db,
			rows: memtx.NewTable[string, domain.Alert](db, nil),
		},
		Deductions: &DeductionRepository{
			db: db,
			rows: memtx.NewTable[string, domain.Deduction](db, func(d domain.Deduction) domain.Deduction {
				d.Lines = slices.Clone(d.Lines)
				if d.ReversedAt != nil {
					at := *d.ReversedAt
					d.ReversedAt = &at
				}
				return d
			}),
		},
	}
}

type StockRepository struct {
	db     *memtx.DB
	levels *memtx.Table[domain.StockKey, domain.StockLevel]
	txs    *memtx.Log[domain.StockTransaction]
	ids    *memtx.Sequence
}

func (r *StockRepository) Get(ctx context.Context, key domain.StockKey) (domain.StockLevel, error) {
	var (
		level domain.StockLevel
		ok    bool
	)
	r.db.View(ctx, func() { level, ok = r.levels.Get(key) })
	if !ok {
		return domain.StockLevel{}, apperr.NotFound("stock", key.String())
	}
	return level, nil
}

// LockForUpdate needs no row locks: a memtx transaction already excludes
// every other writer.
func (r *StockRepository) LockForUpdate(ctx context.Context, keys []domain.StockKey) (map[domain.StockKey]domain.StockLevel, error) {
	out := make(map[domain.StockKey]domain.StockLevel, len(keys))
	r.db.View(ctx, func() {
		for _, k := range keys {
			if level, ok := r.levels.Get(k); ok {
				out[k] = level
			}
		}
	})
	return out, nil
}

func (r *StockRepository) Create(ctx context.Context, level domain.StockLevel) error {
	var err error
	r.db.View(ctx, func() {
		if _, ok := r.levels.Get(level.Key()); ok {
			err = apperr.Invalid("stock", "%s already exists", level.Key())
			return
		}
		r.levels.Put(level.Key(), level)
	})
	return err
}

func (r *StockRepository) Save(ctx context.Context, level domain.StockLevel) error {
	var err error
	r.db.View(ctx, func() {
		if _, ok := r.levels.Get(level.Key()); !ok {
			err = apperr.NotFound("stock", level.Key().String())
			return
		}
		r.levels.Put(level.Key(), level)
	})
	return err
}

func (r *StockRepository) List(ctx context.Context, filter application.StockFilter) ([]domain.StockLevel, error) {
	var out []domain.StockLevel
	r.db.View(ctx, func() {
		r.levels.Scan(func(_ domain.StockKey, l domain.StockLevel) bool {
			if filter.EntityType != "" && l.EntityType != filter.EntityType {
				return true
			}
			if filter.LowOnly && l.Current.GreaterThan(l.Min) {
				return true
			}
			out = append(out, l)
			return true
		})
	})
	slices.SortFunc(out, func(a, b domain.StockLevel) int { return a.Key().Compare(b.Key()) })
	return out, nil
}

func (r *StockRepository) AppendTransaction(ctx context.Context, tx domain.StockTransaction) (domain.StockTransaction, error) {
	r.db.View(ctx, func() {
		tx.ID = r.ids.Next()
		r.txs.Append(tx)
	})
	return tx, nil
}

func (r *StockRepository) Transactions(ctx context.Context, key domain.StockKey, limit int) ([]domain.StockTransaction, error) {
	var out []domain.StockTransaction
	r.db.View(ctx, func() {
		r.txs.Scan(func(tx domain.StockTransaction) bool {
			if tx.EntityType == key.EntityType && tx.EntityID == key.EntityID {
				out = append(out, tx)
			}
			return true
		})
	})
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type recipeKey struct {
	productID    string
	ingredientID string
}

type RecipeRepository struct {
	db   *memtx.DB
	rows *memtx.Table[recipeKey, domain.Recipe]
}

func (r *RecipeRepository) ByProduct(ctx context.Context, productID string) ([]domain.Recipe, error) {
	var out []domain.Recipe
	r.db.View(ctx, func() {
		r.rows.Scan(func(k recipeKey, rec domain.Recipe) bool {
			if k.productID == productID {
				out = append(out, rec)
			}
			return true
		})
	})
	slices.SortFunc(out, func(a, b domain.Recipe) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.IngredientID, b.IngredientID)
	})
	return out, nil
}

func (r *RecipeRepository) Put(ctx context.Context, rec domain.Recipe) error {
	r.db.View(ctx, func() {
		r.rows.Put(recipeKey{rec.ProductID, rec.IngredientID}, rec)
	})
	return nil
}

func (r *RecipeRepository) Delete(ctx context.Context, productID, ingredientID string) error {
	var err error
	r.db.View(ctx, func() {
		k := recipeKey{productID, ingredientID}
		if _, ok := r.rows.Get(k); !ok {
			err = apperr.NotFound("recipe", productID+"/"+ingredientID)
			return
		}
		r.rows.Delete(k)
	})
	return err
}

type AlertRepository struct {
	db   *memtx.DB
	rows *memtx.Table[string, domain.Alert]
}

func (r *AlertRepository) Get(ctx context.Context, id string) (domain.Alert, error) {
	var (
		a  domain.Alert
		ok bool
	)
	r.db.View(ctx, func() { a, ok = r.rows.Get(id) })
	if !ok {
		return domain.Alert{}, apperr.NotFound("alert", id)
	}
	return a, nil
}

func (r *AlertRepository) FindUnread(ctx context.Context, key domain.StockKey) (*domain.Alert, error) {
	var found *domain.Alert
	r.db.View(ctx, func() {
		r.rows.Scan(func(_ string, a domain.Alert) bool {
			if !a.Read && a.Key() == key {
				found = &a
				return false
			}
			return true
		})
	})
	return found, nil
}

func (r *AlertRepository) Create(ctx context.Context, a domain.Alert) error {
	a.Raised = false
	r.db.View(ctx, func() { r.rows.Put(a.ID, a) })
	return nil
}

func (r *AlertRepository) Update(ctx context.Context, a domain.Alert) error {
	var err error
	a.Raised = false
	r.db.View(ctx, func() {
		if _, ok := r.rows.Get(a.ID); !ok {
			err = apperr.NotFound("alert", a.ID)
			return
		}
		r.rows.Put(a.ID, a)
	})
	return err
}

func (r *AlertRepository) ListUnread(ctx context.Context) ([]domain.Alert, error) {
	var out []domain.Alert
	r.db.View(ctx, func() {
		r.rows.Scan(func(_ string, a domain.Alert) bool {
			if !a.Read {
				out = append(out, a)
			}
			return true
		})
	})
	slices.SortFunc(out, func(a, b domain.Alert) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return out, nil
}

type DeductionRepository struct {
	db   *memtx.DB
	rows *memtx.Table[string, domain.Deduction]
}

func (r *DeductionRepository) Claim(ctx context.Context, orderID string) (bool, error) {
	claimed := false
	r.db.View(ctx, func() {
		if _, ok := r.rows.Get(orderID); ok {
			return
		}
		r.rows.Put(orderID, domain.Deduction{OrderID: orderID})
		claimed = true
	})
	return claimed, nil
}

func (r *DeductionRepository) GetForUpdate(ctx context.Context, orderID string) (domain.Deduction, error) {
	var (
		d  domain.Deduction
		ok bool
	)
	r.db.View(ctx, func() { d, ok = r.rows.Get(orderID) })
	if !ok {
		return domain.Deduction{}, apperr.NotFound("stock deduction", orderID)
	}
	return d, nil
}

func (r *DeductionRepository) Save(ctx context.Context, d domain.Deduction) error {
	r.db.View(ctx, func() { r.rows.Put(d.OrderID, d) })
	return nil
}
