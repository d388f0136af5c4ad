package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/restaurant-pos/internal/promotion/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/metrics"
)

// Validator decides eligibility read-only and commits usage exactly once
// per order.
type Validator struct {
	log  *slog.Logger
	tx   Transactor
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

func NewValidator(log *slog.Logger, tx Transactor, repo Repository, loc *time.Location) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{log: log, tx: tx, repo: repo, loc: loc, now: time.Now}
}

// Validate runs every check in order, stopping at the first failure. It
// never writes.
func (v *Validator) Validate(ctx context.Context, code string, oc domain.OrderContext) (domain.Result, error) {
	p, err := v.repo.GetByCode(ctx, domain.NormalizeCode(code))
	if err != nil {
		return domain.Result{}, err
	}
	at := oc.At
	if at.IsZero() {
		at = v.now()
	}

	if err := p.CheckWindow(at.In(v.loc)); err != nil {
		return domain.Result{}, err
	}
	if err := p.CheckMinOrder(oc.Amount); err != nil {
		return domain.Result{}, err
	}
	if err := p.CheckScope(oc); err != nil {
		return domain.Result{}, err
	}
	if err := p.CheckUsageLimit(); err != nil {
		return domain.Result{}, err
	}
	if oc.CustomerID != "" && p.PerUserLimit != nil {
		uses, err := v.repo.CountCustomerUsages(ctx, p.ID, oc.CustomerID)
		if err != nil {
			return domain.Result{}, err
		}
		if err := p.CheckPerUserLimit(uses); err != nil {
			return domain.Result{}, err
		}
	}

	discount := p.Discount(oc.Amount)
	return domain.Result{Promotion: p, DiscountAmount: discount, FinalAmount: oc.Amount - discount}, nil
}

// Commit consumes one usage slot for orderID. The caps are re-checked under
// the promotion row lock; a second commit for the same order is a no-op.
func (v *Validator) Commit(ctx context.Context, code, customerID, orderID string, discount int64) error {
	code = domain.NormalizeCode(code)
	err := v.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := v.repo.LockByCode(ctx, code)
		if err != nil {
			return err
		}
		existing, err := v.repo.UsageByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		if !p.Active {
			return &apperr.PromotionIneligibleError{Code: p.Code, Reason: apperr.ReasonInactive}
		}
		if err := p.CheckUsageLimit(); err != nil {
			return err
		}
		if customerID != "" && p.PerUserLimit != nil {
			uses, err := v.repo.CountCustomerUsages(ctx, p.ID, customerID)
			if err != nil {
				return err
			}
			if err := p.CheckPerUserLimit(uses); err != nil {
				return err
			}
		}

		now := v.now().UTC()
		p.UsageCount++
		p.UpdatedAt = now
		if err := v.repo.Update(ctx, p); err != nil {
			return err
		}
		return v.repo.InsertUsage(ctx, domain.Usage{
			PromotionID:    p.ID,
			CustomerID:     customerID,
			OrderID:        orderID,
			DiscountAmount: discount,
			CreatedAt:      now,
		})
	})
	metrics.RecordPromotionCommit(err)
	if err != nil {
		return fmt.Errorf("commit promotion %s for order %s: %w", code, orderID, err)
	}
	return nil
}

// Release undoes the usage committed for orderID, if there is one.
func (v *Validator) Release(ctx context.Context, orderID string) error {
	return v.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := v.repo.UsageByOrder(ctx, orderID)
		if err != nil || u == nil {
			return err
		}
		p, err := v.repo.LockByID(ctx, u.PromotionID)
		if err != nil {
			return err
		}
		if p.UsageCount > 0 {
			p.UsageCount--
		}
		p.UpdatedAt = v.now().UTC()
		if err := v.repo.Update(ctx, p); err != nil {
			return err
		}
		if err := v.repo.DeleteUsage(ctx, u.ID); err != nil {
			return err
		}
		v.log.Info("promotion usage released", "promotion_id", p.ID, "order_id", orderID)
		return nil
	})
}

func (v *Validator) Create(ctx context.Context, p domain.Promotion) (domain.Promotion, error) {
	p.Code = domain.NormalizeCode(p.Code)
	if err := p.Validate(); err != nil {
		return domain.Promotion{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := v.now().UTC()
	p.UsageCount = 0
	p.CreatedAt, p.UpdatedAt = now, now
	if err := v.repo.Create(ctx, p); err != nil {
		return domain.Promotion{}, err
	}
	return p, nil
}

// Update replaces the editable fields; UsageCount is never taken from input.
func (v *Validator) Update(ctx context.Context, id string, p domain.Promotion) (domain.Promotion, error) {
	p.Code = domain.NormalizeCode(p.Code)
	if err := p.Validate(); err != nil {
		return domain.Promotion{}, err
	}
	err := v.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := v.repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		p.ID = cur.ID
		p.UsageCount = cur.UsageCount
		p.CreatedAt = cur.CreatedAt
		p.UpdatedAt = v.now().UTC()
		return v.repo.Update(ctx, p)
	})
	if err != nil {
		return domain.Promotion{}, err
	}
	return p, nil
}

func (v *Validator) Delete(ctx context.Context, id string) error {
	return v.repo.Delete(ctx, id)
}

func (v *Validator) Get(ctx context.Context, id string) (domain.Promotion, error) {
	return v.repo.Get(ctx, id)
}

func (v *Validator) List(ctx context.Context, activeOnly bool) ([]domain.Promotion, error) {
	return v.repo.List(ctx, activeOnly)
}

func (v *Validator) Stats(ctx context.Context, id string) (domain.Stats, error) {
	p, err := v.repo.Get(ctx, id)
	if err != nil {
		return domain.Stats{}, err
	}
	customers, total, err := v.repo.UsageStats(ctx, id)
	if err != nil {
		return domain.Stats{}, err
	}
	s := domain.Stats{
		PromotionID:       p.ID,
		Code:              p.Code,
		UsageCount:        p.UsageCount,
		DistinctCustomers: customers,
		TotalDiscount:     total,
	}
	if p.UsageLimit != nil {
		remaining := max(0, *p.UsageLimit-p.UsageCount)
		s.Remaining = &remaining
	}
	return s, nil
}
