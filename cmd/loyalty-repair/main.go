// Command loyalty-repair recomputes every customer's balance and membership
// level from the points ledger and reports the drift it fixed.
package main

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/restaurant-pos/internal/app"
	"github.com/dmehra2102/restaurant-pos/pkg/actor"
	"github.com/dmehra2102/restaurant-pos/pkg/config"
	"github.com/dmehra2102/restaurant-pos/pkg/logging"
	"github.com/dmehra2102/restaurant-pos/pkg/pgtx"
	"github.com/dmehra2102/restaurant-pos/pkg/shutdown"
)

func main() {
	cfg, err := config.Load("loyalty-repair")
	if err != nil {
		logging.New("loyalty-repair", "info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Service, cfg.LogLevel)
	if cfg.StoreDriver != config.DriverPostgres {
		log.Error("loyalty-repair needs STORE_DRIVER=postgres")
		os.Exit(1)
	}

	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()
	ctx = actor.WithActor(ctx, actor.Actor{ID: "loyalty-repair", Kind: actor.KindSystem})

	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	engine := app.NewPostgres(log, pgtx.New(log, pool), app.Options{Rules: cfg.Rules})
	fixed, err := engine.Loyalty.RecalculateAll(ctx)
	if err != nil {
		log.Error("recalculation failed", "fixed", fixed, "err", err)
		os.Exit(1)
	}
	log.Info("loyalty recalculated", "levels_changed", fixed)
}
