package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/dmehra2102/restaurant-pos/internal/catalog/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/memtx"
)

type Repository struct {
	db         *memtx.DB
	categories *memtx.Table[string, domain.Category]
	products   *memtx.Table[string, domain.Product]
}

func New(db *memtx.DB) *Repository {
	return &Repository{
		db:         db,
		categories: memtx.NewTable[string, domain.Category](db, nil),
		products:   memtx.NewTable[string, domain.Product](db, nil),
	}
}

func (r *Repository) CreateCategory(ctx context.Context, c domain.Category) error {
	var err error
	r.db.View(ctx, func() {
		if _, ok := r.categories.Get(c.ID); ok {
			err = apperr.Invalid("category", "already exists")
			return
		}
		r.categories.Put(c.ID, c)
	})
	return err
}

func (r *Repository) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	var (
		c  domain.Category
		ok bool
	)
	r.db.View(ctx, func() { c, ok = r.categories.Get(id) })
	if !ok {
		return domain.Category{}, apperr.NotFound("category", id)
	}
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	r.db.View(ctx, func() {
		counts := make(map[string]int)
		r.products.Scan(func(_ string, p domain.Product) bool {
			if p.Active {
				counts[p.CategoryID]++
			}
			return true
		})
		r.categories.Scan(func(_ string, c domain.Category) bool {
			c.ProductCount = counts[c.ID]
			out = append(out, c)
			return true
		})
	})
	slices.SortFunc(out, func(a, b domain.Category) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.Name, b.Name))
	})
	return out, nil
}

func (r *Repository) SaveProduct(ctx context.Context, p domain.Product) error {
	r.db.View(ctx, func() { r.products.Put(p.ID, p) })
	return nil
}

func (r *Repository) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var (
		p  domain.Product
		ok bool
	)
	r.db.View(ctx, func() { p, ok = r.products.Get(id) })
	if !ok {
		return domain.Product{}, apperr.NotFound("product", id)
	}
	return p, nil
}

func (r *Repository) ProductsByID(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	r.db.View(ctx, func() {
		for _, id := range ids {
			if p, ok := r.products.Get(id); ok {
				out[id] = p
			}
		}
	})
	return out, nil
}
