package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/nemde-api/jobs-api/internal/core"
)

// DefaultReconcileSchedule runs the orphan sweep every five minutes.
const DefaultReconcileSchedule = "@every 5m"

// ReconcilerServiceOptions groups dependencies for ReconcilerService.
type ReconcilerServiceOptions struct {
	Store    core.JobStore // Required: job store to sweep
	Jobs     *JobService   // Required: reclamation entry point
	Schedule string        // Optional: cron schedule, defaults to DefaultReconcileSchedule
	Logger   *slog.Logger  // Optional: structured logger
}

// ReconcilerService periodically sweeps the job namespace for orphaned
// records and reclaims them, decoupling cleanup from listing traffic. It
// uses the same idempotent Reclaim primitive the inline listing path uses,
// so concurrent sweeps and listings converge without error.
type ReconcilerService struct {
	store    core.JobStore
	jobs     *JobService
	schedule string
	logger   *slog.Logger
}

// NewReconcilerService constructs a new ReconcilerService.
func NewReconcilerService(opts ReconcilerServiceOptions) (*ReconcilerService, error) {
	if opts.Store == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("JobService is required")
	}

	schedule := opts.Schedule
	if schedule == "" {
		schedule = DefaultReconcileSchedule
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reconciler_service")
	}

	return &ReconcilerService{
		store:    opts.Store,
		jobs:     opts.Jobs,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// Run schedules the sweep and blocks until the context is cancelled.
// Returns nil on graceful shutdown.
func (s *ReconcilerService) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		if err := s.Sweep(ctx); err != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "reconciliation sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule reconciliation sweep: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reconciler service", "schedule", s.schedule)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Sweep scans the job namespace once and reclaims every orphaned record.
// Per-record failures are logged and skipped; only a failed scan aborts the
// sweep.
func (s *ReconcilerService) Sweep(ctx context.Context) error {
	ids, err := s.store.ScanJobIDs(ctx)
	if err != nil {
		return fmt.Errorf("scan job keys: %w", err)
	}

	reclaimed := 0
	for _, id := range ids {
		meta, err := s.store.FetchMeta(ctx, id)
		if err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "read meta failed during sweep", "job_id", id, "error", err)
			}
			continue
		}
		if meta != nil {
			continue
		}

		if err := s.jobs.Reclaim(ctx, id); err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "reclaim orphan failed during sweep", "job_id", id, "error", err)
			}
			continue
		}
		reclaimed++
	}

	if s.logger != nil && reclaimed > 0 {
		s.logger.InfoContext(ctx, "reconciliation sweep complete",
			"scanned", len(ids), "reclaimed", reclaimed)
	}
	return nil
}
