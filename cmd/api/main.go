package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/atlas-bank/atlas_core/internal/config"
	"github.com/atlas-bank/atlas_core/internal/infra"
	"github.com/atlas-bank/atlas_core/internal/logging"
	"github.com/atlas-bank/atlas_core/internal/scheduler"
	"github.com/atlas-bank/atlas_core/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	} else {
		logger.Warn("DATABASE_URL not set, running on in-memory ledger")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("REDIS_URL not set, idempotency protection disabled")
	}

	srv, err := server.New(cfg, db, cache, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	jobCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	if cfg.SchedulerEnabled {
		core := srv.Core()
		runner := scheduler.NewRunner(logger)
		if err := runner.Add("interest-accrual", cfg.InterestCron, func(ctx context.Context, now time.Time) {
			if err := core.Interest.RunDailyAccrual(ctx, now); err != nil {
				logger.Error("interest accrual run failed", "error", err)
			}
		}); err != nil {
			logger.Error("register interest job", "error", err)
			os.Exit(1)
		}
		if err := runner.Add("transfer-dispatch", cfg.DispatchCron, func(ctx context.Context, now time.Time) {
			core.Dispatcher.RunDueTransfers(ctx, now)
		}); err != nil {
			logger.Error("register dispatch job", "error", err)
			os.Exit(1)
		}
		runner.Start(jobCtx)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	stopJobs()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
