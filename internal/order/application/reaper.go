package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmehra2102/restaurant-pos/internal/order/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/actor"
)

// Reaper cancels orders left in CREATING longer than ttl.
type Reaper struct {
	log      *slog.Logger
	svc      *Service
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewReaper(log *slog.Logger, svc *Service, ttl time.Duration) *Reaper {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	return &Reaper{log: log, svc: svc, ttl: ttl, interval: interval, now: time.Now}
}

// Run sweeps on a ticker until ctx is done. A zero ttl disables it.
func (r *Reaper) Run(ctx context.Context) error {
	if r.ttl <= 0 {
		r.log.Info("reaper disabled")
		return nil
	}
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("reaper stopping")
			return nil
		case <-t.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.log.Error("reaper sweep error", "err", err)
			}
		}
	}
}

// RunOnce cancels every stale CREATING order and returns how many it
// cancelled. Orders that moved on in the meantime are skipped.
func (r *Reaper) RunOnce(ctx context.Context) (int, error) {
	ids, err := r.svc.orders.ListByStatusBefore(ctx, domain.StatusCreating, r.now().Add(-r.ttl))
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, id := range ids {
		o, err := r.svc.orders.Get(ctx, id)
		if err != nil {
			r.log.Warn("reaper could not load order", "order_id", id, "err", err)
			continue
		}
		if o.Status != domain.StatusCreating {
			continue
		}
		_, err = r.svc.machine.Transition(ctx, id, domain.StatusCancelled, actor.Reaper,
			WithExpectedVersion(o.Version), WithReason("not paid within "+r.ttl.String()))
		if err != nil {
			r.log.Warn("reaper could not cancel order", "order_id", id, "err", err)
			continue
		}
		cancelled++
	}
	if cancelled > 0 {
		r.log.Info("reaper cancelled stale orders", "count", cancelled)
	}
	return cancelled, nil
}
