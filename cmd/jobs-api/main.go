package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nemde-api/jobs-api/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	cfgPtr := &cfg

	if err = bootstrap.ValidateServiceConfig(cfgPtr); err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting jobs-api",
		"redis", cfg.Redis.URI,
		"queue", cfg.Queue,
		"services", cfg.Services,
		"diagnostics", cfg.Diagnostics.Enabled())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := bootstrap.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := redisClient.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", cerr)
		}
	}()

	diagPool, err := bootstrap.ConnectDiagnostics(ctx, cfg.Diagnostics)
	if err != nil {
		return err
	}
	if diagPool != nil {
		defer diagPool.Close()
	}

	services, err := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
		Config:      cfgPtr,
		RedisClient: redisClient,
		DiagPool:    diagPool,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	return bootstrap.RunServices(ctx, cfgPtr, services, logger)
}
