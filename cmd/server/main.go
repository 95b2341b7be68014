// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/forty/internal/auth"
	"github.com/jason-s-yu/forty/internal/cache"
	"github.com/jason-s-yu/forty/internal/config"
	"github.com/jason-s-yu/forty/internal/database"
	"github.com/jason-s-yu/forty/internal/game"
	"github.com/jason-s-yu/forty/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, warnings := config.Load()

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)
	if cfg.Production() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	for _, w := range warnings {
		logger.Warn(w)
	}

	if err := auth.Init(cfg.TokenExpireTime); err != nil {
		logger.Fatalf("auth: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := game.NewBroadcaster(logger)
	opts := game.RegistryOptions{
		DefaultRules:      cfg.Rules,
		GameOverRetention: cfg.GameOverRetention,
		LobbyIdleTimeout:  cfg.LobbyIdleTimeout,
		Publisher:         b,
		Logger:            logger,
		OnRemove:          b.DropSession,
	}

	if rdb := connectRedis(ctx, cfg, logger); rdb != nil {
		defer rdb.Close()
		opts.Actions = cache.NewActionQueue(rdb, cfg.HistorianQueueName, logger)
	}
	if pool := connectPostgres(ctx, cfg, logger); pool != nil {
		defer pool.Close()
		store := database.NewStore(pool)
		opts.OnGameOver = func(res game.GameResult) {
			// runs on the game's request goroutine; archive in the background
			go func() {
				saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := store.RecordGameResult(saveCtx, res); err != nil {
					logger.WithField("game", res.GameID).WithError(err).Error("archive game result")
				}
			}()
		}
	}

	registry := game.NewRegistry(opts)
	go registry.Run(ctx, cfg.SweepInterval)

	gs := handlers.NewGameServer(registry, b, logger, cfg)
	server := &http.Server{
		Handler:           handlers.NewRouter(gs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	l, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		logger.Fatalf("failed to listen: %v", err)
	}
	logger.Infof("listening on %s", l.Addr())

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(l)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("failed to serve: %v", err)
		}
	case <-ctx.Done():
		logger.Info("terminating")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("shutdown: %v", err)
	}
}

// connectRedis returns nil when the action log is not configured or Redis is unreachable; the
// server runs without archival in that case.
func connectRedis(ctx context.Context, cfg config.Config, logger *logrus.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, action log disabled")
		return nil
	}
	rdb, err := cache.Connect(ctx, cache.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		logger.Warnf("action log disabled: %v", err)
		return nil
	}
	logger.Infof("publishing game actions to redis %s", cfg.RedisAddr)
	return rdb
}

func connectPostgres(ctx context.Context, cfg config.Config, logger *logrus.Logger) *pgxpool.Pool {
	if !cfg.Postgres.Enabled() {
		logger.Info("PG_HOST not set, game results are not archived")
		return nil
	}
	pool, err := database.ConnectDB(ctx, cfg.Postgres)
	if err != nil {
		logger.Warnf("game archive disabled: %v", err)
		return nil
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		logger.Warnf("game archive disabled: %v", err)
		return nil
	}
	logger.Infof("archiving game results to postgres at %s", cfg.Postgres.Host)
	return pool
}
