package httpx

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nemde-api/jobs-api/internal/observability/metrics"
	"github.com/nemde-api/jobs-api/internal/ports"
	"github.com/nemde-api/jobs-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs     *service.JobService
	Identity ports.IdentityProvider
	Logger   *slog.Logger
	Metrics  *metrics.JobMetrics // Optional: request instrumentation
}

// NewRouter creates and configures the HTTP router. Every job route sits
// behind identity resolution; health and metrics are open.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{Svc: services.Jobs}
	healthHandlers := &HealthHandlers{Svc: services.Jobs}

	registerJobRoutes(mux, jobHandlers, services)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandlers.Health))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandlers.Health))
	mux.Handle("GET /metrics", promhttp.Handler())

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Logging(logger)(Recover(logger)(mux))
}

// registerJobRoutes wires the job lifecycle routes behind the identity
// middleware.
func registerJobRoutes(mux *http.ServeMux, h *JobHandlers, services RouterServices) {
	auth := RequireIdentity(services.Identity)
	route := func(pattern, name string, handler http.HandlerFunc) {
		mux.Handle(pattern, Instrument(services.Metrics, name)(auth(handler)))
	}

	route("POST /api/jobs", "create", h.CreateJob)
	route("GET /api/jobs", "list", h.ListStatuses)
	route("GET /api/jobs/{id}/status", "status", h.GetStatus)
	route("GET /api/jobs/{id}/results", "results", h.GetResults)
	route("GET /api/jobs/{id}/size", "size", h.GetSize)
	route("DELETE /api/jobs/{id}", "delete", h.DeleteJob)
}
