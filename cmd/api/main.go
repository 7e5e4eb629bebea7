package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"payflow/db"
	"payflow/eventcache"
	"payflow/httpapi"
	"payflow/idempotency"
	"payflow/logger"
	"payflow/payment"
	"payflow/payout"
	"payflow/stream"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	var (
		paymentStore payment.Store
		payoutStore  payout.Store
		idemStore    idempotency.Store
	)
	if connString := os.Getenv("DATABASE_URL"); connString != "" {
		pool, err := db.NewPool(ctx, connString)
		if err != nil {
			log.Fatal("bootstrap database pool", "error", err)
		}
		defer pool.Close()
		paymentStore = payment.NewPGStore(pool)
		payoutStore = payout.NewPGStore(pool)
		idemStore = idempotency.NewPGStore(pool, idempotency.DefaultTTL)
		log.Info("using postgres stores")
	} else {
		paymentStore = payment.NewMemoryStore()
		payoutStore = payout.NewMemoryStore()
		idemStore = idempotency.NewMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	var cache eventcache.Cache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatal("parse REDIS_URL", "error", err)
		}
		cache = eventcache.NewRedis(redis.NewClient(opts), time.Hour)
		log.Info("using redis event cache")
	} else {
		cache = eventcache.NewMemory()
		log.Warn("REDIS_URL not set, using in-memory event cache")
	}

	feed := httpapi.NewFeed(15*time.Second, log)
	defer feed.Close()

	payments := payment.NewService(paymentStore, idemStore, log).
		WithUpdateHook(func(p payment.Payment) {
			feed.Publish(stream.EventPaymentUpdated, map[string]any{
				"id":      p.ID,
				"status":  p.Status,
				"version": p.Version,
			})
		})
	payouts := payout.NewService(payoutStore, log).
		WithUpdateHook(func(b payout.Batch) {
			feed.Publish(stream.EventPayoutUpdated, map[string]any{
				"id":             b.ID,
				"status":         b.Status,
				"attentionLevel": b.AttentionLevel,
				"version":        b.Version,
			})
		})

	handler := httpapi.NewHandler(payments, payouts, cache, feed, log)
	router := httpapi.NewRouter(handler)

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}
