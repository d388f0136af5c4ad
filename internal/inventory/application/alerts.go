package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/metrics"
)

// AlertGenerator keeps at most one unread alert per stock row.
type AlertGenerator struct {
	log    *slog.Logger
	tx     Transactor
	alerts AlertRepository
	now    func() time.Time
}

func NewAlertGenerator(log *slog.Logger, tx Transactor, alerts AlertRepository) *AlertGenerator {
	return &AlertGenerator{log: log, tx: tx, alerts: alerts, now: time.Now}
}

// Evaluate classifies newLevel against minLevel. An unread alert for the row
// is updated in place (including a low to out-of-stock escalation); a level
// back above min marks it read. The returned alert has Raised set when it
// was created or changed type.
func (g *AlertGenerator) Evaluate(ctx context.Context, key domain.StockKey, newLevel, minLevel decimal.Decimal) (*domain.Alert, error) {
	existing, err := g.alerts.FindUnread(ctx, key)
	if err != nil {
		return nil, err
	}
	now := g.now().UTC()

	typ, alerting := domain.Classify(newLevel, minLevel)
	if !alerting {
		if existing != nil {
			existing.Read = true
			existing.UpdatedAt = now
			if err := g.alerts.Update(ctx, *existing); err != nil {
				return nil, err
			}
			g.log.Info("stock alert resolved", "alert_id", existing.ID, "entity", key.String())
		}
		return nil, nil
	}

	msg := domain.AlertMessage(key, typ, newLevel, minLevel)
	if existing == nil {
		a := domain.Alert{
			ID:         uuid.NewString(),
			EntityType: key.EntityType,
			EntityID:   key.EntityID,
			Type:       typ,
			Message:    msg,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := g.alerts.Create(ctx, a); err != nil {
			return nil, err
		}
		metrics.RecordAlert(string(typ))
		a.Raised = true
		return &a, nil
	}

	escalated := existing.Type != typ
	existing.Type = typ
	existing.Message = msg
	existing.UpdatedAt = now
	if err := g.alerts.Update(ctx, *existing); err != nil {
		return nil, err
	}
	if escalated {
		metrics.RecordAlert(string(typ))
	}
	existing.Raised = escalated
	return existing, nil
}

// EvaluateSafely runs Evaluate in a savepoint. Failures are logged and
// swallowed so a sale is never blocked by alert bookkeeping.
func (g *AlertGenerator) EvaluateSafely(ctx context.Context, key domain.StockKey, newLevel, minLevel decimal.Decimal) *domain.Alert {
	var alert *domain.Alert
	err := g.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		alert, err = g.Evaluate(ctx, key, newLevel, minLevel)
		return err
	})
	if err != nil {
		g.log.Error("stock alert evaluation failed", "entity", key.String(), "err", err)
		return nil
	}
	return alert
}

func (g *AlertGenerator) MarkRead(ctx context.Context, alertID string) (domain.Alert, error) {
	var out domain.Alert
	err := g.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := g.alerts.Get(ctx, alertID)
		if err != nil {
			return err
		}
		if !a.Read {
			a.Read = true
			a.UpdatedAt = g.now().UTC()
			if err := g.alerts.Update(ctx, a); err != nil {
				return err
			}
		}
		out = a
		return nil
	})
	return out, err
}

func (g *AlertGenerator) ListUnread(ctx context.Context) ([]domain.Alert, error) {
	return g.alerts.ListUnread(ctx)
}
