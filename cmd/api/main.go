package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vendio/beverage-machine/internal/catalog"
	"github.com/vendio/beverage-machine/internal/coins"
	"github.com/vendio/beverage-machine/internal/config"
	"github.com/vendio/beverage-machine/internal/httpx"
	kafkax "github.com/vendio/beverage-machine/internal/kafka"
	"github.com/vendio/beverage-machine/internal/machine"
	"github.com/vendio/beverage-machine/internal/orders"
	"github.com/vendio/beverage-machine/internal/postgres"
	"github.com/vendio/beverage-machine/internal/redisx"
	"github.com/vendio/beverage-machine/migrations"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.Apply(ctx, pool); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	createdProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	createdProd.Start(ctx)
	statusProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatus, 1024)
	statusProd.Start(ctx)

	coord := machine.NewCoordinator()
	hub := machine.NewHub(coord)

	catalogRepo := &catalog.Repo{DB: pool}
	coinsRepo := &coins.Repo{DB: pool}
	ordersSvc := orders.NewService(&orders.PG{Pool: pool})

	r := httpx.NewRouter(coord)
	(&httpx.MachineHandler{Hub: hub}).Register(r)
	(&httpx.OrdersHandler{
		Svc:            ordersSvc,
		Coins:          coinsRepo,
		Redis:          rdb,
		Producer:       createdProd,
		StatusProducer: statusProd,
		Service:        cfg.ServiceName,
	}).Register(r)
	(&httpx.ProductsHandler{Repo: catalogRepo, Redis: rdb}).Register(r)
	(&httpx.CoinsHandler{Repo: coinsRepo}).Register(r)
	(&httpx.ImportHandler{Repo: catalogRepo, Redis: rdb}).Register(r)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("api listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}

	// stop the producer loops and let them flush what is queued
	cancel()
	createdProd.WaitClosed()
	statusProd.WaitClosed()
	log.Println("bye")
}
