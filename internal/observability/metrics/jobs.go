// Package metrics exposes Prometheus instrumentation for the jobs API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result constants for metric labelling.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultDenied   = "denied"
	ResultNotFound = "not_found"
)

// JobMetrics holds the counters and histograms emitted by the job service
// and HTTP layer.
type JobMetrics struct {
	Admissions       *prometheus.CounterVec
	Queries          *prometheus.CounterVec
	Deletions        *prometheus.CounterVec
	OrphansReclaimed prometheus.Counter
	RequestDuration  *prometheus.HistogramVec
}

// NewJobMetrics registers and returns the job metric set. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	factory := promauto.With(reg)

	return &JobMetrics{
		Admissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_admissions_total",
			Help: "Job admission attempts by result.",
		}, []string{"result"}),
		Queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_queries_total",
			Help: "Job status/results/list queries by operation and result.",
		}, []string{"operation", "result"}),
		Deletions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_deletions_total",
			Help: "Job deletions by result.",
		}, []string{"result"}),
		OrphansReclaimed: factory.NewCounter(prometheus.CounterOpts{
			Name: "jobs_orphans_reclaimed_total",
			Help: "Orphaned job records reclaimed during listing or sweeps.",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobs_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}
