// cmd/historian/main.go pops game actions from the Redis queue and archives them to Postgres.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/forty/internal/cache"
	"github.com/jason-s-yu/forty/internal/config"
	"github.com/jason-s-yu/forty/internal/database"
	"github.com/jason-s-yu/forty/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, warnings := config.Load()

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)
	for _, w := range warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RedisAddr == "" || !cfg.Postgres.Enabled() {
		logger.Fatal("historian needs REDIS_ADDR and PG_HOST")
	}

	rdb, err := cache.Connect(ctx, cache.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	pool, err := database.ConnectDB(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatalf("postgres: %v", err)
	}

	svc := historian.NewService(
		cache.NewActionQueue(rdb, cfg.HistorianQueueName, logger),
		database.NewStore(pool),
		historian.Options{
			BatchSize:  cfg.HistorianBatchSize,
			FlushDelay: cfg.HistorianFlush,
			Inactivity: inactivityTimeout(cfg),
			Logger:     logger,
		},
	)
	svc.Run(ctx)
	logger.Info("historian shutdown complete")
}

// inactivityTimeout outlasts the server's own lobby expiry so live lobbies are never marked.
func inactivityTimeout(cfg config.Config) time.Duration {
	d := 10 * time.Minute
	if cfg.LobbyIdleTimeout > d {
		d = cfg.LobbyIdleTimeout
	}
	return d
}
