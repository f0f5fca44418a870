package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/nemde-api/jobs-api/config"
	"github.com/nemde-api/jobs-api/internal/adapters/devauth"
	"github.com/nemde-api/jobs-api/internal/adapters/oidcauth"
	"github.com/nemde-api/jobs-api/internal/core"
	"github.com/nemde-api/jobs-api/internal/data"
	httpx "github.com/nemde-api/jobs-api/internal/http"
	"github.com/nemde-api/jobs-api/internal/observability/metrics"
	"github.com/nemde-api/jobs-api/internal/ports"
	"github.com/nemde-api/jobs-api/internal/service"
)

// ServiceDeps groups shared dependencies for service construction.
type ServiceDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient
	DiagPool    *pgxpool.Pool // Optional: nil disables diagnostics capture
	Logger      *slog.Logger
}

// ServiceContainer holds the constructed services.
type ServiceContainer struct {
	Jobs       *service.JobService
	Reconciler *service.ReconcilerService
	Identity   ports.IdentityProvider
	Metrics    *metrics.JobMetrics
}

// NewServices wires the job store, diagnostics sink, identity provider, and
// services from configuration.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	cfg := deps.Config

	store := data.NewRedisJobStore(deps.RedisClient, cfg.Queue)

	var diagnostics core.DiagnosticsSink
	if deps.DiagPool != nil {
		repo := data.NewPgxDiagnosticsRepo(deps.DiagPool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return ServiceContainer{}, fmt.Errorf("diagnostics schema: %w", err)
		}
		diagnostics = repo
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Store:       store,
		Diagnostics: diagnostics,
		Timeout:     cfg.JobTimeout,
		Retention:   cfg.JobRetention,
		Logger:      deps.Logger,
		Metrics:     jobMetrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create job service: %w", err)
	}

	reconciler, err := service.NewReconcilerService(service.ReconcilerServiceOptions{
		Store:    store,
		Jobs:     jobs,
		Schedule: cfg.ReconcileSchedule,
		Logger:   deps.Logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create reconciler service: %w", err)
	}

	identity, err := newIdentityProvider(ctx, cfg.Auth)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create identity provider: %w", err)
	}

	return ServiceContainer{
		Jobs:       jobs,
		Reconciler: reconciler,
		Identity:   identity,
		Metrics:    jobMetrics,
	}, nil
}

//nolint:ireturn // provider selection is configuration-driven.
func newIdentityProvider(ctx context.Context, cfg config.AuthConfig) (ports.IdentityProvider, error) {
	switch cfg.Mode {
	case config.AuthModeStatic:
		return devauth.NewProvider(cfg.Static.Email)
	default:
		return oidcauth.NewProvider(ctx, oidcauth.ProviderConfig{
			ClientID:     cfg.OIDC.ClientID,
			DiscoveryURL: cfg.OIDC.DiscoveryURL,
		})
	}
}

// RunServices starts the enabled services and blocks until the context is
// cancelled or a service fails.
func RunServices(ctx context.Context, cfg *config.AppConfig, services ServiceContainer, logger *slog.Logger) error {
	group, ctx := errgroup.WithContext(ctx)

	if cfg.IsHTTPServerEnabled() {
		handler := httpx.NewRouter(httpx.RouterServices{
			Jobs:     services.Jobs,
			Identity: services.Identity,
			Logger:   logger,
			Metrics:  services.Metrics,
		})
		group.Go(func() error {
			return RunHTTPServer(ctx, cfg.HTTP, handler, logger)
		})
	}

	if cfg.IsReconcilerEnabled() {
		group.Go(func() error {
			return services.Reconciler.Run(ctx)
		})
	}

	return group.Wait()
}
