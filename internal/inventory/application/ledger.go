package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/actor"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

type AdjustResult struct {
	Level       domain.StockLevel       `json:"level"`
	Transaction domain.StockTransaction `json:"transaction"`
	Alert       *domain.Alert           `json:"alert,omitempty"`
}

// Ledger owns current stock levels and the append-only transaction log.
type Ledger struct {
	log    *slog.Logger
	tx     Transactor
	stock  StockRepository
	alerts *AlertGenerator
	now    func() time.Time
}

func NewLedger(log *slog.Logger, tx Transactor, stock StockRepository, alerts *AlertGenerator) *Ledger {
	return &Ledger{log: log, tx: tx, stock: stock, alerts: alerts, now: time.Now}
}

// Adjust applies delta to one row. A result below zero is rejected with
// InsufficientStockError, never clamped.
func (l *Ledger) Adjust(ctx context.Context, key domain.StockKey, delta decimal.Decimal, txType domain.TxType, reason string, who actor.Actor) (AdjustResult, error) {
	if err := txType.CheckDelta(delta); err != nil {
		return AdjustResult{}, apperr.Invalid("quantity", "%s", err.Error())
	}
	if reason == "" {
		return AdjustResult{}, apperr.Invalid("reason", "is required")
	}

	var res AdjustResult
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := l.stock.LockForUpdate(ctx, []domain.StockKey{key})
		if err != nil {
			return err
		}
		level, ok := locked[key]
		if !ok {
			return apperr.NotFound("stock", key.String())
		}
		res, err = l.apply(ctx, level, delta, txType, reason, "", who)
		return err
	})
	if err != nil {
		return AdjustResult{}, fmt.Errorf("adjust %s: %w", key, err)
	}
	return res, nil
}

// apply writes one change to a row the caller has already locked.
func (l *Ledger) apply(ctx context.Context, level domain.StockLevel, delta decimal.Decimal, txType domain.TxType, reason, reference string, who actor.Actor) (AdjustResult, error) {
	next := level.Current.Add(delta)
	if next.IsNegative() {
		return AdjustResult{}, &apperr.InsufficientStockError{
			EntityType: string(level.EntityType),
			EntityID:   level.EntityID,
			Name:       level.Name,
			Available:  level.Current,
			Requested:  delta.Neg(),
		}
	}

	now := l.now().UTC()
	level.Current = next
	level.LastUpdated = now
	if err := l.stock.Save(ctx, level); err != nil {
		return AdjustResult{}, err
	}

	entry, err := l.stock.AppendTransaction(ctx, domain.StockTransaction{
		EntityType:   level.EntityType,
		EntityID:     level.EntityID,
		Type:         txType,
		Quantity:     delta,
		BalanceAfter: next,
		Reason:       reason,
		Reference:    reference,
		Actor:        who.String(),
		CreatedAt:    now,
	})
	if err != nil {
		return AdjustResult{}, err
	}

	alert := l.alerts.EvaluateSafely(ctx, level.Key(), level.Current, level.Min)
	return AdjustResult{Level: level, Transaction: entry, Alert: alert}, nil
}

// CreateLevel inserts a new row with an opening balance. The returned alert
// is non-nil when the opening level is already at or below min.
func (l *Ledger) CreateLevel(ctx context.Context, level domain.StockLevel, who actor.Actor) (AdjustResult, error) {
	if level.Max.IsZero() && level.Min.IsZero() {
		level.Max = level.Current
	}
	if err := level.Validate(); err != nil {
		return AdjustResult{}, apperr.Invalid("stock", "%s", err.Error())
	}
	level.LastUpdated = l.now().UTC()

	var alert *domain.Alert
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := l.stock.Create(ctx, level); err != nil {
			return err
		}
		if level.Current.IsPositive() {
			_, err := l.stock.AppendTransaction(ctx, domain.StockTransaction{
				EntityType:   level.EntityType,
				EntityID:     level.EntityID,
				Type:         domain.TxPurchase,
				Quantity:     level.Current,
				BalanceAfter: level.Current,
				Reason:       "opening balance",
				Actor:        who.String(),
				CreatedAt:    level.LastUpdated,
			})
			if err != nil {
				return err
			}
		}
		alert = l.alerts.EvaluateSafely(ctx, level.Key(), level.Current, level.Min)
		return nil
	})
	if err != nil {
		return AdjustResult{}, err
	}
	return AdjustResult{Level: level, Alert: alert}, nil
}

// Thresholds is a partial update; nil and empty fields keep their value.
type Thresholds struct {
	Min    *decimal.Decimal
	Max    *decimal.Decimal
	Active *bool
	Name   string
	Unit   string
}

// UpdateThresholds changes row metadata; the level itself only moves
// through Adjust.
func (l *Ledger) UpdateThresholds(ctx context.Context, key domain.StockKey, t Thresholds) (AdjustResult, error) {
	var out AdjustResult
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := l.stock.LockForUpdate(ctx, []domain.StockKey{key})
		if err != nil {
			return err
		}
		level, ok := locked[key]
		if !ok {
			return apperr.NotFound("stock", key.String())
		}
		if t.Min != nil {
			level.Min = *t.Min
		}
		if t.Max != nil {
			level.Max = *t.Max
		}
		if t.Active != nil {
			level.Active = *t.Active
		}
		if t.Name != "" {
			level.Name = t.Name
		}
		if t.Unit != "" {
			level.Unit = t.Unit
		}
		if err := level.Validate(); err != nil {
			return apperr.Invalid("stock", "%s", err.Error())
		}
		level.LastUpdated = l.now().UTC()
		if err := l.stock.Save(ctx, level); err != nil {
			return err
		}
		out = AdjustResult{Level: level, Alert: l.alerts.EvaluateSafely(ctx, key, level.Current, level.Min)}
		return nil
	})
	return out, err
}

func (l *Ledger) Get(ctx context.Context, key domain.StockKey) (domain.StockLevel, error) {
	return l.stock.Get(ctx, key)
}

func (l *Ledger) Snapshot(ctx context.Context, filter StockFilter) ([]domain.StockLevel, error) {
	return l.stock.List(ctx, filter)
}

func (l *Ledger) Transactions(ctx context.Context, key domain.StockKey, limit int) ([]domain.StockTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if _, err := l.stock.Get(ctx, key); err != nil {
		return nil, err
	}
	return l.stock.Transactions(ctx, key, limit)
}
