package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/dmehra2102/restaurant-pos/internal/app"
	"github.com/dmehra2102/restaurant-pos/internal/broadcast"
	"github.com/dmehra2102/restaurant-pos/internal/broadcast/infrastructure/rabbitmq"
	"github.com/dmehra2102/restaurant-pos/internal/broadcast/infrastructure/websocket"
	invgrpc "github.com/dmehra2102/restaurant-pos/internal/inventory/infrastructure/grpc"
	paymentapp "github.com/dmehra2102/restaurant-pos/internal/payment/application"
	paymentkafka "github.com/dmehra2102/restaurant-pos/internal/payment/infrastructure/kafka"
	"github.com/dmehra2102/restaurant-pos/pkg/cache"
	"github.com/dmehra2102/restaurant-pos/pkg/config"
	"github.com/dmehra2102/restaurant-pos/pkg/httpx"
	"github.com/dmehra2102/restaurant-pos/pkg/idempotency"
	"github.com/dmehra2102/restaurant-pos/pkg/logging"
	"github.com/dmehra2102/restaurant-pos/pkg/memtx"
	"github.com/dmehra2102/restaurant-pos/pkg/outbox"
	"github.com/dmehra2102/restaurant-pos/pkg/pgtx"
	"github.com/dmehra2102/restaurant-pos/pkg/shutdown"
	"github.com/dmehra2102/restaurant-pos/pkg/tracing"
)

func main() {
	cfg, err := config.Load("pos-service")
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Service, cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.Service, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}

	// Redis backs the category cache and consumer idempotency. The memory
	// driver falls back to an embedded server when REDIS_ADDR is empty.
	redisAddr := cfg.RedisAddr
	if redisAddr == "" {
		if cfg.StoreDriver != config.DriverMemory {
			log.Error("REDIS_ADDR is required with the postgres driver")
			os.Exit(1)
		}
		mr, err := miniredis.Run()
		if err != nil {
			log.Error("embedded redis failed", "err", err)
			os.Exit(1)
		}
		defer mr.Close()
		redisAddr = mr.Addr()
		log.Info("using embedded redis", "addr", redisAddr)
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})

	// Broadcast hub and its sinks.
	hub := broadcast.NewHub(log.With("component", "broadcast"), cfg.Rules.BroadcastBuffer)
	display := websocket.New(log.With("component", "websocket"))
	hub.Subscribe(display)
	var sink *rabbitmq.Sink
	if cfg.AMQPURL != "" {
		sink, err = rabbitmq.Dial(log.With("component", "rabbitmq"), cfg.AMQPURL, cfg.DisplayExchange)
		if err != nil {
			log.Error("rabbitmq connect failed", "err", err)
			os.Exit(1)
		}
		hub.Subscribe(sink)
	}

	opts := app.Options{
		Rules:     cfg.Rules,
		Cache:     cache.NewRedis(rdb, "pos:"),
		Publisher: hub,
	}
	var (
		engine *app.App
		pool   *pgxpool.Pool
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn("running with the in-memory store; data is lost on exit")
		engine = app.NewMemory(log, memtx.New(), opts)
	case config.DriverPostgres:
		pool, err = pgxpool.New(ctx, cfg.PGURL)
		if err != nil {
			log.Error("pg connect failed", "err", err)
			os.Exit(1)
		}
		db := pgtx.New(log, pool)
		if err := db.Migrate(ctx); err != nil {
			log.Error("schema migration failed", "err", err)
			os.Exit(1)
		}
		engine = app.NewPostgres(log, db, opts)
	}

	go func() {
		if err := hub.Run(ctx); err != nil {
			log.Error("broadcast hub stopped", "err", err)
		}
	}()
	go func() {
		if err := engine.Reaper.Run(ctx); err != nil {
			log.Error("reaper stopped", "err", err)
		}
	}()

	// Outbox relay and payment results, both over Kafka.
	writer := outbox.NewKafkaWriter(cfg.KafkaBrokers)
	relay := outbox.NewRelay(log.With("component", "outbox"), engine.Outbox,
		outbox.NewDispatcher(log, writer, cfg.OutboxTopic), cfg.Service+"-relay")
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	payments := paymentkafka.NewConsumer(
		log.With("component", "payment"),
		paymentkafka.NewReader(cfg.KafkaBrokers, cfg.PaymentTopic, cfg.ConsumerGroup),
		paymentapp.NewService(log.With("component", "payment"), engine.Orders),
		idempotency.NewStore(rdb, 24*time.Hour),
	)
	go func() {
		if err := payments.Run(ctx); err != nil {
			log.Error("payment consumer stopped", "err", err)
			cancel()
		}
	}()

	gs, err := invgrpc.Run(cfg.GRPCAddr, invgrpc.NewServer(log.With("component", "grpc"), engine.Inventory))
	if err != nil {
		log.Error("grpc server failed", "err", err)
		os.Exit(1)
	}
	log.Info("grpc listening", "addr", cfg.GRPCAddr)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      engine.Router(httpx.NewAuthenticator(log, cfg.JWTSecret), display),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	err = shutdown.Drain(log, 10*time.Second,
		shutdown.Step{Name: "http", Fn: srv.Shutdown},
		shutdown.Step{Name: "grpc", Fn: stopGRPC(gs)},
		shutdown.Step{Name: "websocket", Fn: func(context.Context) error { display.Close(); return nil }},
		shutdown.Step{Name: "rabbitmq", Fn: func(context.Context) error {
			if sink == nil {
				return nil
			}
			return sink.Close()
		}},
		shutdown.Step{Name: "kafka", Fn: func(context.Context) error { return writer.Close() }},
		shutdown.Step{Name: "redis", Fn: func(context.Context) error { return rdb.Close() }},
		shutdown.Step{Name: "postgres", Fn: func(context.Context) error {
			if pool != nil {
				pool.Close()
			}
			return nil
		}},
		shutdown.Step{Name: "tracing", Fn: tp.Shutdown},
	)
	if err != nil {
		os.Exit(1)
	}
	log.Info("pos-service shutdown complete")
}

// stopGRPC drains in-flight calls, forcing a stop at the deadline.
func stopGRPC(gs *grpc.Server) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			gs.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			gs.Stop()
			return ctx.Err()
		}
	}
}
