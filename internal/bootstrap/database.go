package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nemde-api/jobs-api/config"
)

const connectTimeout = 5 * time.Second

// ConnectRedis connects to the shared job store, using sentinel failover
// when configured.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel support flexible.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	var client redis.UniversalClient
	if cfg.UseSentinel {
		client = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       cfg.SentinelMasterName,
			SentinelAddrs:    cfg.SentinelNodes,
			SentinelPassword: cfg.SentinelPassword,
			Password:         cfg.Password,
			DB:               cfg.DB,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.URI,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// ConnectDiagnostics connects the optional Postgres diagnostics database.
// Returns (nil, nil) when diagnostics capture is not configured.
func ConnectDiagnostics(ctx context.Context, cfg config.DiagnosticsConfig) (*pgxpool.Pool, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open diagnostics pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping diagnostics db: %w", err)
	}
	return pool, nil
}
