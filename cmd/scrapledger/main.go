package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/scrapledger/scrapledger/internal/app"
	"github.com/scrapledger/scrapledger/internal/billing"
	"github.com/scrapledger/scrapledger/internal/billing/number"
	"github.com/scrapledger/scrapledger/internal/billing/render"
	"github.com/scrapledger/scrapledger/internal/billing/tax"
	"github.com/scrapledger/scrapledger/internal/observability"
	"github.com/scrapledger/scrapledger/internal/platform/cache"
	"github.com/scrapledger/scrapledger/internal/platform/db"
	"github.com/scrapledger/scrapledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Degrade to an unverified client: rate limiting and the render
		// cache recover once redis comes back.
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
		// PDF downloads fail until the engine comes up, bill creation does not.
		logger.Warn("gotenberg unreachable", slog.Any("error", err))
	}
	renderer := render.NewRenderer(gotenberg, render.Options{
		MaxConcurrent: cfg.RenderMaxConcurrent,
		Timeout:       cfg.RenderTimeout,
		Cache:         render.NewCache(redisClient, cfg.RenderCacheTTL),
		Logger:        logger,
		Observer:      metrics.ObserveRender,
	})

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	billingRepo := billing.NewRepository(pool)
	allocator := number.NewPGAllocator(pool)
	billingService := billing.NewService(billingRepo, allocator, renderer, billing.ServiceConfig{
		HSN:       tax.NewHSNLookup(tax.DefaultHSNEntries),
		Prerender: jobClient,
		Logger:    logger,
	})
	billingHandler := billing.NewHandler(logger, billingService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		BillingHandler: billingHandler,
		JobHandler:     jobHandler,
		Pool:           pool,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
