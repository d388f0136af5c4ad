// Command inventory-service serves the stock gRPC API on its own, for
// back-office tools that adjust stock without going through the POS node.
// It shares the Postgres store with pos-service.
package main

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/restaurant-pos/internal/app"
	"github.com/dmehra2102/restaurant-pos/internal/broadcast"
	"github.com/dmehra2102/restaurant-pos/internal/broadcast/infrastructure/rabbitmq"
	invgrpc "github.com/dmehra2102/restaurant-pos/internal/inventory/infrastructure/grpc"
	"github.com/dmehra2102/restaurant-pos/pkg/config"
	"github.com/dmehra2102/restaurant-pos/pkg/logging"
	"github.com/dmehra2102/restaurant-pos/pkg/pgtx"
	"github.com/dmehra2102/restaurant-pos/pkg/shutdown"
	"github.com/dmehra2102/restaurant-pos/pkg/tracing"
)

func main() {
	cfg, err := config.Load("inventory-service")
	if err != nil {
		logging.New("inventory-service", "info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Service, cfg.LogLevel)
	if cfg.StoreDriver != config.DriverPostgres {
		log.Error("inventory-service needs STORE_DRIVER=postgres")
		os.Exit(1)
	}

	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.Service, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	db := pgtx.New(log, pool)
	if err := db.Migrate(ctx); err != nil {
		log.Error("schema migration failed", "err", err)
		os.Exit(1)
	}

	// Stock and alert events still reach displays through the exchange
	// pos-service fans out to.
	hub := broadcast.NewHub(log.With("component", "broadcast"), cfg.Rules.BroadcastBuffer)
	var sink *rabbitmq.Sink
	if cfg.AMQPURL != "" {
		sink, err = rabbitmq.Dial(log.With("component", "rabbitmq"), cfg.AMQPURL, cfg.DisplayExchange)
		if err != nil {
			log.Error("rabbitmq connect failed", "err", err)
			os.Exit(1)
		}
		hub.Subscribe(sink)
	}
	go func() { _ = hub.Run(ctx) }()

	engine := app.NewPostgres(log, db, app.Options{Rules: cfg.Rules, Publisher: hub})

	gs, err := invgrpc.Run(cfg.GRPCAddr, invgrpc.NewServer(log.With("component", "grpc"), engine.Inventory))
	if err != nil {
		log.Error("grpc server failed", "err", err)
		os.Exit(1)
	}
	log.Info("grpc listening", "addr", cfg.GRPCAddr)

	<-ctx.Done()

	_ = shutdown.Drain(log, 10*time.Second,
		shutdown.Step{Name: "grpc", Fn: func(context.Context) error { gs.GracefulStop(); return nil }},
		shutdown.Step{Name: "rabbitmq", Fn: func(context.Context) error {
			if sink == nil {
				return nil
			}
			return sink.Close()
		}},
		shutdown.Step{Name: "postgres", Fn: func(context.Context) error { pool.Close(); return nil }},
		shutdown.Step{Name: "tracing", Fn: tp.Shutdown},
	)
	log.Info("inventory-service shutdown")
}
