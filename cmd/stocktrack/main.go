package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stocktrack/stocktrack/internal/app"
	"github.com/stocktrack/stocktrack/internal/auth"
	"github.com/stocktrack/stocktrack/internal/catalog"
	"github.com/stocktrack/stocktrack/internal/ledger"
	"github.com/stocktrack/stocktrack/internal/notify"
	"github.com/stocktrack/stocktrack/internal/observability"
	"github.com/stocktrack/stocktrack/internal/platform/cache"
	"github.com/stocktrack/stocktrack/internal/platform/db"
	"github.com/stocktrack/stocktrack/internal/requests"
	"github.com/stocktrack/stocktrack/internal/shared"
	"github.com/stocktrack/stocktrack/internal/sku"
	"github.com/stocktrack/stocktrack/internal/users"
	"github.com/stocktrack/stocktrack/jobs"
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
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("create job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)

	auditLogger := shared.NewAuditLogger(pool)
	approvals := shared.NewApprovalRecorder(pool, logger)
	idempotency := shared.NewIdempotencyStore(pool)

	tokens := auth.NewTokenManager(redisClient, cfg.TokenSecret, cfg.TokenTTL)
	authService := auth.NewService(auth.NewRepository(pool))
	authMiddleware := auth.Middleware{Tokens: tokens, Logger: logger}

	usersRepo := users.NewRepository(pool)

	skuService := sku.NewService(sku.NewRepository(pool), logger, cfg.SKUPrefix)
	catalogService := catalog.NewService(catalog.NewRepository(pool), skuService, auditLogger)
	ledgerService := ledger.NewService(ledger.NewRepository(pool), auditLogger)
	notifyService := notify.NewService(logger, notify.NewRepository(pool), usersRepo, jobClient)
	requestsService := requests.NewService(logger, requests.NewRepository(pool), notifyService, approvals, idempotency, auditLogger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Auth:            authMiddleware,
		AuthHandler:     auth.NewHandler(logger, authService, tokens),
		SKUHandler:      sku.NewHandler(logger, skuService, authMiddleware.RequireAdmin),
		CatalogHandler:  catalog.NewHandler(logger, catalogService, authMiddleware.RequireAdmin),
		LedgerHandler:   ledger.NewHandler(logger, ledgerService, authMiddleware.RequireAdmin),
		RequestsHandler: requests.NewHandler(logger, requestsService, authMiddleware.RequireAdmin),
		NotifyHandler:   notify.NewHandler(logger, notifyService),
		JobHandler:      jobs.NewHandler(inspector, logger),
		Pool:            pool,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}
	logger.Info("server stopped")
}
