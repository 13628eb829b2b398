// matchd is the patient identity matching daemon. It wires the engine, the
// review ledger, and the HTTP API together; business logic lives in the
// internal packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kindred/internal/audit"
	"kindred/internal/engine"
	enginemetrics "kindred/internal/engine/metrics"
	"kindred/internal/ledger"
	"kindred/internal/platform/config"
	"kindred/internal/platform/httpserver"
	"kindred/internal/platform/logger"
	"kindred/internal/platform/postgres"
	platformredis "kindred/internal/platform/redis"
	"kindred/internal/review"
	httptransport "kindred/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	db, err := postgres.Open(cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	var store ledger.Store
	var checks []httptransport.HealthCheck
	if db != nil {
		defer db.Close()
		store = ledger.NewPostgresStore(db)
		checks = append(checks, httptransport.HealthCheck{Name: "postgres", Check: db.PingContext})
		log.Info("ledger backed by postgres")
	} else {
		store = ledger.NewInMemoryStore()
		log.Warn("no postgres configured, ledger is in-memory and volatile")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	var reviews review.Queue
	if redisClient != nil {
		defer redisClient.Close()
		reviews = review.NewRedisQueue(redisClient.Client)
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Check: redisClient.Health})
		log.Info("review queue backed by redis")
	} else {
		reviews = review.NewMemoryQueue()
		log.Warn("no redis configured, review flags are in-memory and volatile")
	}

	var auditPublisher *audit.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		auditPublisher, err = audit.NewPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("kafka audit publisher failed", "error", err)
			os.Exit(1)
		}
		defer auditPublisher.Close()
		log.Info("audit trail publishing to kafka", "topic", cfg.Kafka.Topic)
	}

	eng, err := engine.New(cfg.Match, store, reviews,
		engine.WithAudit(auditPublisher),
		engine.WithMetrics(enginemetrics.New()),
		engine.WithLogger(log),
	)
	if err != nil {
		log.Error("invalid matching configuration", "error", err)
		os.Exit(1)
	}

	runner := newMatchRunner(eng, db)
	candidates := ledger.NewService(store, auditPublisher, log)
	handler := httptransport.New(runner, candidates, reviews, log)
	router := httptransport.NewRouter(handler, log, checks...)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting matchd", "addr", cfg.Addr, "workers", cfg.Match.Workers)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("matchd stopped")
}
