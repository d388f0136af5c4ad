package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/dmehra2102/restaurant-pos/internal/promotion/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/memtx"
)

type Repository struct {
	db         *memtx.DB
	promotions *memtx.Table[string, domain.Promotion]
	usages     *memtx.Table[string, domain.Usage]
	ids        *memtx.Sequence
}

func clonePromotion(p domain.Promotion) domain.Promotion {
	p.ProductIDs = slices.Clone(p.ProductIDs)
	p.CategoryIDs = slices.Clone(p.CategoryIDs)
	p.MembershipLevels = slices.Clone(p.MembershipLevels)
	return p
}

func New(db *memtx.DB) *Repository {
	return &Repository{
		db:         db,
		promotions: memtx.NewTable[string, domain.Promotion](db, clonePromotion),
		usages:     memtx.NewTable[string, domain.Usage](db, nil),
		ids:        memtx.NewSequence(db),
	}
}

func (r *Repository) byCode(code string) (domain.Promotion, bool) {
	var (
		found domain.Promotion
		ok    bool
	)
	r.promotions.Scan(func(_ string, p domain.Promotion) bool {
		if p.Code == code {
			found, ok = p, true
			return false
		}
		return true
	})
	return found, ok
}

func (r *Repository) Create(ctx context.Context, p domain.Promotion) error {
	var err error
	r.db.View(ctx, func() {
		if _, dup := r.byCode(p.Code); dup {
			err = apperr.Invalid("code", "promotion %s already exists", p.Code)
			return
		}
		r.promotions.Put(p.ID, p)
	})
	return err
}

func (r *Repository) Update(ctx context.Context, p domain.Promotion) error {
	var err error
	r.db.View(ctx, func() {
		if _, ok := r.promotions.Get(p.ID); !ok {
			err = apperr.NotFound("promotion", p.ID)
			return
		}
		if other, dup := r.byCode(p.Code); dup && other.ID != p.ID {
			err = apperr.Invalid("code", "promotion %s already exists", p.Code)
			return
		}
		r.promotions.Put(p.ID, p)
	})
	return err
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	var err error
	r.db.View(ctx, func() {
		if _, ok := r.promotions.Get(id); !ok {
			err = apperr.NotFound("promotion", id)
			return
		}
		r.promotions.Delete(id)
		var orphaned []string
		r.usages.Scan(func(orderID string, u domain.Usage) bool {
			if u.PromotionID == id {
				orphaned = append(orphaned, orderID)
			}
			return true
		})
		for _, k := range orphaned {
			r.usages.Delete(k)
		}
	})
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Promotion, error) {
	var (
		p  domain.Promotion
		ok bool
	)
	r.db.View(ctx, func() { p, ok = r.promotions.Get(id) })
	if !ok {
		return domain.Promotion{}, apperr.NotFound("promotion", id)
	}
	return p, nil
}

func (r *Repository) GetByCode(ctx context.Context, code string) (domain.Promotion, error) {
	var (
		p  domain.Promotion
		ok bool
	)
	r.db.View(ctx, func() { p, ok = r.byCode(code) })
	if !ok {
		return domain.Promotion{}, apperr.NotFound("promotion", code)
	}
	return p, nil
}

// LockByCode and LockByID rely on the memtx transaction lock.
func (r *Repository) LockByCode(ctx context.Context, code string) (domain.Promotion, error) {
	return r.GetByCode(ctx, code)
}

func (r *Repository) LockByID(ctx context.Context, id string) (domain.Promotion, error) {
	return r.Get(ctx, id)
}

func (r *Repository) List(ctx context.Context, activeOnly bool) ([]domain.Promotion, error) {
	var out []domain.Promotion
	r.db.View(ctx, func() {
		r.promotions.Scan(func(_ string, p domain.Promotion) bool {
			if !activeOnly || p.Active {
				out = append(out, p)
			}
			return true
		})
	})
	slices.SortFunc(out, func(a, b domain.Promotion) int { return cmp.Compare(a.Code, b.Code) })
	return out, nil
}

func (r *Repository) CountCustomerUsages(ctx context.Context, promotionID, customerID string) (int, error) {
	n := 0
	r.db.View(ctx, func() {
		r.usages.Scan(func(_ string, u domain.Usage) bool {
			if u.PromotionID == promotionID && u.CustomerID == customerID {
				n++
			}
			return true
		})
	})
	return n, nil
}

func (r *Repository) InsertUsage(ctx context.Context, u domain.Usage) error {
	var err error
	r.db.View(ctx, func() {
		if _, dup := r.usages.Get(u.OrderID); dup {
			err = apperr.Invalid("orderId", "promotion usage for order %s already exists", u.OrderID)
			return
		}
		u.ID = r.ids.Next()
		r.usages.Put(u.OrderID, u)
	})
	return err
}

func (r *Repository) UsageByOrder(ctx context.Context, orderID string) (*domain.Usage, error) {
	var (
		u  domain.Usage
		ok bool
	)
	r.db.View(ctx, func() { u, ok = r.usages.Get(orderID) })
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *Repository) DeleteUsage(ctx context.Context, id int64) error {
	r.db.View(ctx, func() {
		var key string
		r.usages.Scan(func(orderID string, u domain.Usage) bool {
			if u.ID == id {
				key = orderID
				return false
			}
			return true
		})
		if key != "" {
			r.usages.Delete(key)
		}
	})
	return nil
}

func (r *Repository) UsageStats(ctx context.Context, promotionID string) (int, int64, error) {
	customers := make(map[string]struct{})
	var total int64
	r.db.View(ctx, func() {
		r.usages.Scan(func(_ string, u domain.Usage) bool {
			if u.PromotionID != promotionID {
				return true
			}
			total += u.DiscountAmount
			if u.CustomerID != "" {
				customers[u.CustomerID] = struct{}{}
			}
			return true
		})
	})
	return len(customers), total, nil
}
