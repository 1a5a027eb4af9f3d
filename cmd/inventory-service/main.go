package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/pratyushm21/ecommerce-saga/internal/config"
	"github.com/pratyushm21/ecommerce-saga/internal/inventory/application"
	invhttp "github.com/pratyushm21/ecommerce-saga/internal/inventory/infrastructure/http"
	invkafka "github.com/pratyushm21/ecommerce-saga/internal/inventory/infrastructure/kafka"
	invpg "github.com/pratyushm21/ecommerce-saga/internal/inventory/infrastructure/postgres"
	"github.com/pratyushm21/ecommerce-saga/pkg/idempotency"
	"github.com/pratyushm21/ecommerce-saga/pkg/logging"
	"github.com/pratyushm21/ecommerce-saga/pkg/shutdown"
	"github.com/pratyushm21/ecommerce-saga/pkg/tracing"
)

func main() {
	log := logging.New("inventory-service")
	cfg := config.LoadInventory()

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "inventory-service", cfg.OTLPEndpoint, log)
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

	repo := invpg.NewRepository(log, pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Error("schema setup failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, cfg.DedupTTL)

	svc := application.NewService(log, repo)

	consumer := invkafka.NewConsumer(log, cfg.KafkaBrokers, svc, idem)
	go func() {
		if err := consumer.Run(ctx); err != nil {
			log.Error("consumer stopped with error", "err", err)
			cancel()
		}
	}()

	handler := invhttp.NewHandler(log, svc)
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
	log.Info("inventory-service shutdown complete")
}
