// Command payment-simulator answers card and online orders from the outbox
// topic with gateway results, for local runs without a real gateway.
package main

import (
	"context"
	"os"
	"strconv"

	"github.com/dmehra2102/restaurant-pos/internal/payment/application"
	paymentkafka "github.com/dmehra2102/restaurant-pos/internal/payment/infrastructure/kafka"
	"github.com/dmehra2102/restaurant-pos/pkg/config"
	"github.com/dmehra2102/restaurant-pos/pkg/logging"
	"github.com/dmehra2102/restaurant-pos/pkg/outbox"
	"github.com/dmehra2102/restaurant-pos/pkg/shutdown"
)

func main() {
	cfg, err := config.Load("payment-simulator")
	if err != nil {
		logging.New("payment-simulator", "info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Service, cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()

	var limit int64
	if v := os.Getenv("DECLINE_ABOVE"); v != "" {
		limit, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Error("DECLINE_ABOVE must be an integer amount", "err", err)
			os.Exit(1)
		}
	}

	writer := outbox.NewKafkaWriter(cfg.KafkaBrokers)
	defer writer.Close()

	gw := paymentkafka.NewGateway(log,
		paymentkafka.NewReader(cfg.KafkaBrokers, cfg.OutboxTopic, cfg.ConsumerGroup),
		writer, cfg.PaymentTopic, application.NewSimulator(log, limit))

	log.Info("payment simulator running", "in", cfg.OutboxTopic, "out", cfg.PaymentTopic, "decline_above", limit)
	if err := gw.Run(ctx); err != nil {
		log.Error("gateway stopped", "err", err)
		os.Exit(1)
	}
	log.Info("payment-simulator shutdown")
}
