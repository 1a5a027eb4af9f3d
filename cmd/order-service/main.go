package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pratyushm21/ecommerce-saga/internal/config"
	"github.com/pratyushm21/ecommerce-saga/internal/order/application"
	"github.com/pratyushm21/ecommerce-saga/internal/order/infrastructure/gateway"
	orderhttp "github.com/pratyushm21/ecommerce-saga/internal/order/infrastructure/http"
	"github.com/pratyushm21/ecommerce-saga/internal/order/infrastructure/inventory"
	orderkafka "github.com/pratyushm21/ecommerce-saga/internal/order/infrastructure/kafka"
	orderpg "github.com/pratyushm21/ecommerce-saga/internal/order/infrastructure/postgres"
	"github.com/pratyushm21/ecommerce-saga/pkg/logging"
	"github.com/pratyushm21/ecommerce-saga/pkg/shutdown"
	"github.com/pratyushm21/ecommerce-saga/pkg/tracing"
)

func main() {
	log := logging.New("order-service")
	cfg := config.LoadOrder()

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "order-service", cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := orderpg.NewRepository(log, pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Error("schema setup failed", "err", err)
		os.Exit(1)
	}

	publisher := orderkafka.NewPublisher(log, cfg.KafkaBrokers)
	defer publisher.Close()

	inv := inventory.NewClient(cfg.InventoryURL)
	gw := gateway.NewMockGateway(log, cfg.DeclineThreshold)

	svc := application.NewService(log, repo, inv, gw, publisher)
	handler := orderhttp.NewHandler(log, svc, []byte(cfg.JWTSecret))

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("order-service shutdown complete")
}
