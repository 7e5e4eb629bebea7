// Command consumer subscribes to the event stream of a running API instance
// and mirrors entity snapshots into the event cache. The API's read path
// falls back to that cache when its primary store misses, so a consumer
// pointed at redis keeps reads serviceable across store outages.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"payflow/buffer"
	"payflow/eventcache"
	"payflow/logger"
	"payflow/stream"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	streamURL := os.Getenv("STREAM_URL")
	if streamURL == "" {
		streamURL = "http://127.0.0.1:8080/api/v1/events/stream"
	}

	var cache eventcache.Cache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatal("parse REDIS_URL", "error", err)
		}
		cache = eventcache.NewRedis(redis.NewClient(opts), time.Hour)
		log.Info("mirroring into redis event cache")
	} else {
		cache = eventcache.NewMemory()
		log.Warn("REDIS_URL not set, mirroring into in-memory cache (lost on exit)")
	}

	buf := buffer.New(eventcache.BatchSink(cache, log),
		buffer.WithLogger[stream.Event](log))

	mgr := stream.NewManager(stream.NewSSETransport(streamURL),
		stream.WithManagerLogger(log),
		stream.WithEventHandler(buf.Push),
		stream.WithStateHandler(func(s stream.State) {
			log.Info("stream state changed", "state", s)
		}),
	)
	mgr.Start()
	log.Info("consumer started", "stream_url", streamURL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stats := mgr.Stats()
	log.Info("shutting down",
		"missed_events", stats.MissedEvents, "reconnect_attempts", stats.ReconnectAttempts)
	mgr.Close()
	buf.ForceFlush()
	buf.Close()
}
