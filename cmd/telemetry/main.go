package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vendio/beverage-machine/internal/config"
	kafkax "github.com/vendio/beverage-machine/internal/kafka"
	"github.com/vendio/beverage-machine/internal/orders"
	"github.com/vendio/beverage-machine/internal/redisx"
	"github.com/vendio/beverage-machine/internal/telemetry"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		log.Println("shutting down")
		cancel()
	}()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &telemetry.Service{Redis: rdb, ServiceName: cfg.TelemetryGroup}

	consumer := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.TelemetryGroup, orders.TopicOrderCreated, cfg.TelemetryWorkers)
	log.Printf("telemetry consuming %s as %s", orders.TopicOrderCreated, cfg.TelemetryGroup)
	if err := consumer.Start(ctx, svc.HandleOrderCreated); err != nil {
		log.Fatalf("consumer: %v", err)
	}
	log.Println("bye")
}
