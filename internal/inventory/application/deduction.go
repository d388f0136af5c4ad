package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/actor"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/metrics"
)

// DeductionEngine turns order lines into stock decrements, exactly once per
// order and all-or-nothing.
type DeductionEngine struct {
	log        *slog.Logger
	tx         Transactor
	stock      StockRepository
	recipes    *RecipeResolver
	deductions DeductionRepository
	ledger     *Ledger
	now        func() time.Time
}

func NewDeductionEngine(log *slog.Logger, tx Transactor, stock StockRepository, recipes *RecipeResolver, deductions DeductionRepository, ledger *Ledger) *DeductionEngine {
	return &DeductionEngine{
		log:        log,
		tx:         tx,
		stock:      stock,
		recipes:    recipes,
		deductions: deductions,
		ledger:     ledger,
		now:        time.Now,
	}
}

type demand struct {
	key domain.StockKey
	qty decimal.Decimal
}

// Deduct explodes lines through their recipes and decrements every tracked
// row. A repeat call for the same order returns the recorded result with
// Replayed set and touches nothing.
func (e *DeductionEngine) Deduct(ctx context.Context, orderID string, lines []domain.SaleLine, who actor.Actor) (domain.DeductionResult, error) {
	var res domain.DeductionResult
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		claimed, err := e.deductions.Claim(ctx, orderID)
		if err != nil {
			return err
		}
		if !claimed {
			d, err := e.deductions.GetForUpdate(ctx, orderID)
			if err != nil {
				return err
			}
			res = domain.DeductionResult{OrderID: orderID, Lines: d.Lines, Replayed: true}
			return nil
		}

		demands, err := e.plan(ctx, lines)
		if err != nil {
			return err
		}
		keys := make([]domain.StockKey, 0, len(demands))
		for _, d := range demands {
			keys = append(keys, d.key)
		}
		slices.SortFunc(keys, domain.StockKey.Compare)
		locked, err := e.stock.LockForUpdate(ctx, keys)
		if err != nil {
			return err
		}

		// Verify every row before writing any of them.
		tracked := make([]demand, 0, len(demands))
		for _, d := range demands {
			level, ok := locked[d.key]
			if !ok {
				if d.key.EntityType == domain.EntityProduct {
					continue
				}
				return apperr.NotFound("ingredient stock", d.key.EntityID)
			}
			if !level.Active {
				continue
			}
			if level.Current.LessThan(d.qty) {
				return &apperr.InsufficientStockError{
					EntityType: string(d.key.EntityType),
					EntityID:   d.key.EntityID,
					Name:       level.Name,
					Available:  level.Current,
					Requested:  d.qty,
				}
			}
			tracked = append(tracked, d)
		}

		res = domain.DeductionResult{OrderID: orderID, Lines: make([]domain.DeductionLine, 0, len(tracked))}
		for _, d := range tracked {
			applied, err := e.ledger.apply(ctx, locked[d.key], d.qty.Neg(), domain.TxSale, "sale for order "+orderID, orderID, who)
			if err != nil {
				return err
			}
			res.Lines = append(res.Lines, domain.DeductionLine{
				EntityType:   d.key.EntityType,
				EntityID:     d.key.EntityID,
				Quantity:     d.qty,
				BalanceAfter: applied.Level.Current,
			})
			if applied.Alert != nil && applied.Alert.Raised {
				res.Alerts = append(res.Alerts, *applied.Alert)
			}
		}

		return e.deductions.Save(ctx, domain.Deduction{
			OrderID:    orderID,
			Lines:      res.Lines,
			DeductedAt: e.now().UTC(),
		})
	})
	switch {
	case err != nil && apperr.Is(err, apperr.KindInsufficientStock):
		metrics.RecordDeduction("insufficient")
	case err != nil:
		metrics.RecordDeduction("error")
	case res.Replayed:
		metrics.RecordDeduction("replayed")
	default:
		metrics.RecordDeduction("applied")
	}
	if err != nil {
		return domain.DeductionResult{}, fmt.Errorf("deduct stock for order %s: %w", orderID, err)
	}
	return res, nil
}

// plan aggregates demand per stock row, keeping first-appearance order so
// the first offending row reported is stable.
func (e *DeductionEngine) plan(ctx context.Context, lines []domain.SaleLine) ([]demand, error) {
	index := make(map[domain.StockKey]int)
	var out []demand
	add := func(k domain.StockKey, q decimal.Decimal) {
		if i, ok := index[k]; ok {
			out[i].qty = out[i].qty.Add(q)
			return
		}
		index[k] = len(out)
		out = append(out, demand{key: k, qty: q})
	}

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, apperr.Invalid("quantity", "must be positive for product %s", line.ProductID)
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		add(domain.ProductKey(line.ProductID), qty)

		recipe, err := e.recipes.Resolve(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		for _, r := range recipe {
			add(domain.IngredientKey(r.IngredientID), qty.Mul(r.QuantityPerUnit))
		}
	}
	return out, nil
}

// Reverse puts back what Deduct took, as return transactions. It runs at
// most once per order and returns ErrNotDeducted when there is nothing to
// reverse.
func (e *DeductionEngine) Reverse(ctx context.Context, orderID string, who actor.Actor) (domain.DeductionResult, error) {
	var res domain.DeductionResult
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := e.deductions.GetForUpdate(ctx, orderID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return ErrNotDeducted
			}
			return err
		}
		if d.ReversedAt != nil {
			res = domain.DeductionResult{OrderID: orderID, Lines: d.Lines, Replayed: true}
			return nil
		}

		keys := make([]domain.StockKey, 0, len(d.Lines))
		for _, l := range d.Lines {
			keys = append(keys, l.Key())
		}
		slices.SortFunc(keys, domain.StockKey.Compare)
		locked, err := e.stock.LockForUpdate(ctx, keys)
		if err != nil {
			return err
		}

		res = domain.DeductionResult{OrderID: orderID, Lines: make([]domain.DeductionLine, 0, len(d.Lines))}
		for _, l := range d.Lines {
			level, ok := locked[l.Key()]
			if !ok {
				return apperr.NotFound("stock", l.Key().String())
			}
			applied, err := e.ledger.apply(ctx, level, l.Quantity, domain.TxReturn, "order "+orderID+" cancelled", orderID, who)
			if err != nil {
				return err
			}
			res.Lines = append(res.Lines, domain.DeductionLine{
				EntityType:   l.EntityType,
				EntityID:     l.EntityID,
				Quantity:     l.Quantity,
				BalanceAfter: applied.Level.Current,
			})
			if applied.Alert != nil && applied.Alert.Raised {
				res.Alerts = append(res.Alerts, *applied.Alert)
			}
		}

		now := e.now().UTC()
		d.ReversedAt = &now
		return e.deductions.Save(ctx, d)
	})
	if err != nil {
		if errors.Is(err, ErrNotDeducted) {
			return domain.DeductionResult{}, err
		}
		return domain.DeductionResult{}, fmt.Errorf("reverse stock for order %s: %w", orderID, err)
	}
	return res, nil
}

// Recorded returns the deduction record for an order, if any.
func (e *DeductionEngine) Recorded(ctx context.Context, orderID string) (domain.Deduction, error) {
	var d domain.Deduction
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		d, err = e.deductions.GetForUpdate(ctx, orderID)
		return err
	})
	return d, err
}
