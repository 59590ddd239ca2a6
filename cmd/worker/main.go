package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/scrapledger/scrapledger/internal/app"
	"github.com/scrapledger/scrapledger/internal/billing"
	"github.com/scrapledger/scrapledger/internal/billing/render"
	"github.com/scrapledger/scrapledger/internal/observability"
	"github.com/scrapledger/scrapledger/internal/platform/cache"
	"github.com/scrapledger/scrapledger/internal/platform/db"
	"github.com/scrapledger/scrapledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unreachable", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	gotenberg := render.NewGotenbergClient(cfg.GotenbergURL)
	if err := gotenberg.Ping(ctx); err != nil {
		logger.Warn("gotenberg unreachable", slog.Any("error", err))
	}
	renderer := render.NewRenderer(gotenberg, render.Options{
		MaxConcurrent: cfg.RenderMaxConcurrent,
		Timeout:       cfg.RenderTimeout,
		Cache:         render.NewCache(redisClient, cfg.RenderCacheTTL),
		Logger:        logger,
		Observer:      metrics.ObserveRender,
	})

	billingRepo := billing.NewRepository(pool)
	prerender := jobs.NewPrerenderHandler(billingRepo, renderer, metrics, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Prerender: prerender,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
