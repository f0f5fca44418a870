// Package service implements the job lifecycle operations: admission,
// status/results queries, bulk listing with orphan reclamation, and
// deletion. Every read path is gated by ownership-based access control.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nemde-api/jobs-api/internal/core"
	"github.com/nemde-api/jobs-api/internal/domain/model"
	apperrors "github.com/nemde-api/jobs-api/internal/errors"
	"github.com/nemde-api/jobs-api/internal/observability/metrics"
)

const (
	// executionEntryPoint is the single function reference workers resolve
	// and invoke for every job.
	executionEntryPoint = "nemde.core.model.execution.run_model"

	// DefaultJobTimeout is the execution timeout stamped on new records.
	DefaultJobTimeout = 180 * time.Second

	// DefaultRetention is how long results and failure diagnostics are kept
	// after a job reaches a terminal state.
	DefaultRetention = 2 * time.Hour

	// failureInfoMask replaces raw failure diagnostics in caller-visible
	// responses.
	failureInfoMask = "Error processing job"
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Store       core.JobStore        // Required: job store and queue adapter
	Diagnostics core.DiagnosticsSink // Optional: failure diagnostics capture
	Timeout     time.Duration        // Optional: execution timeout, defaults to DefaultJobTimeout
	Retention   time.Duration        // Optional: result/failure retention, defaults to DefaultRetention
	Logger      *slog.Logger         // Optional: structured logger
	Metrics     *metrics.JobMetrics  // Optional: Prometheus metric set
}

// JobService provides the job lifecycle and visibility-control operations.
//
// The service is stateless between calls: every operation runs against the
// injected store, tolerates concurrent mutation, and never blocks waiting
// for a job to execute.
type JobService struct {
	store       core.JobStore
	diagnostics core.DiagnosticsSink
	timeout     time.Duration
	retention   time.Duration
	logger      *slog.Logger
	metrics     *metrics.JobMetrics
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Store == nil {
		return nil, errors.New("JobStore is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	retention := opts.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
	}

	return &JobService{
		store:       opts.Store,
		diagnostics: opts.Diagnostics,
		timeout:     timeout,
		retention:   retention,
		logger:      logger,
		metrics:     opts.Metrics,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// Admit validates a raw submission, tags it with ownership metadata, writes
// the record, and enqueues it. Validation failures abort before any store
// mutation. A store write followed by a failed enqueue is surfaced as an
// engine error and the half-admitted record is removed so it cannot linger
// unqueued but persisted.
func (s *JobService) Admit(ctx context.Context, caller string, body []byte) (*model.AdmissionReceipt, error) {
	req, err := model.ParseJobRequest(body)
	if err != nil {
		s.countAdmission(metrics.ResultError)
		return nil, err
	}

	// TODO: look up which queue the job should be appended to; only the
	// public queue is supported for now.
	rec := &model.JobRecord{
		ID:        uuid.NewString(),
		Func:      executionEntryPoint,
		Args:      req,
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
		Timeout:   s.timeout,
		Meta: model.JobMeta{
			CreatedBy: caller,
			Label:     req.Options.Label,
		},
		ResultTTL:  s.retention,
		FailureTTL: s.retention,
	}

	if err = s.store.Create(ctx, rec); err != nil {
		s.countAdmission(metrics.ResultError)
		return nil, err
	}

	if err = s.store.Enqueue(ctx, rec); err != nil {
		// The record is persisted but invisible to the engine; remove it
		// rather than leaving it silently unqueued.
		if delErr := s.store.Delete(ctx, rec.ID); delErr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "remove unqueued job record failed",
				"job_id", rec.ID, "error", delErr)
		}
		s.countAdmission(metrics.ResultError)
		return nil, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job admitted",
			"job_id", rec.ID, "created_by", caller, "label", rec.Meta.Label)
	}
	s.countAdmission(metrics.ResultSuccess)

	return &model.AdmissionReceipt{
		JobID:      rec.ID,
		CreatedAt:  rec.CreatedAt,
		EnqueuedAt: rec.EnqueuedAt,
		Timeout:    int64(rec.Timeout / time.Second),
		Status:     rec.Status,
		Label:      rec.Meta.Label,
	}, nil
}

// GetStatus returns a point-in-time status snapshot for a single job,
// enforcing ownership.
func (s *JobService) GetStatus(ctx context.Context, caller, jobID string) (*model.StatusView, error) {
	rec, err := s.fetchAuthorized(ctx, caller, jobID)
	if err != nil {
		s.countQuery("status", err)
		return nil, err
	}
	s.countQuery("status", nil)

	view := model.StatusViewOf(rec)
	return &view, nil
}

// GetResults returns the status snapshot plus the job outcome. Non-empty
// failure diagnostics are replaced with a generic marker; the raw text is
// handed to the diagnostics sink for internal analysis.
func (s *JobService) GetResults(ctx context.Context, caller, jobID string) (*model.ResultsView, error) {
	rec, err := s.fetchAuthorized(ctx, caller, jobID)
	if err != nil {
		s.countQuery("results", err)
		return nil, err
	}
	s.countQuery("results", nil)

	view := &model.ResultsView{
		StatusView: model.StatusViewOf(rec),
		Result:     rec.Result,
	}
	if rec.FailureInfo != "" {
		view.FailureInfo = failureInfoMask
		s.captureDiagnostics(ctx, rec)
	}
	return view, nil
}

// ListStatuses enumerates every job visible to the caller, most recent
// first. Records owned by other identities are silently excluded; records
// missing ownership metadata are orphans and are reclaimed instead of
// surfaced. Per-item failures are logged and skipped so one bad record
// cannot fail the whole listing.
func (s *JobService) ListStatuses(ctx context.Context, caller string) ([]model.StatusView, error) {
	ids, err := s.store.ScanJobIDs(ctx)
	if err != nil {
		s.countQuery("list", err)
		return nil, err
	}

	out := make([]model.StatusView, 0, len(ids))
	for _, id := range ids {
		view, ok := s.listOne(ctx, caller, id)
		if ok {
			out = append(out, view)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	s.countQuery("list", nil)
	return out, nil
}

// listOne resolves a single scanned id into a caller-visible view, or
// reports false when the record is skipped (orphaned, foreign, or broken).
func (s *JobService) listOne(ctx context.Context, caller, id string) (model.StatusView, bool) {
	meta, err := s.store.FetchMeta(ctx, id)
	if err != nil {
		s.logListSkip(ctx, id, "read meta failed", err)
		return model.StatusView{}, false
	}

	// Missing metadata marks a cancel/execute race; reclaim the record
	// instead of surfacing it.
	if meta == nil {
		if err = s.Reclaim(ctx, id); err != nil {
			s.logListSkip(ctx, id, "reclaim orphan failed", err)
		}
		return model.StatusView{}, false
	}

	if Authorize(caller, *meta) != nil {
		return model.StatusView{}, false
	}

	rec, err := s.store.FetchStatusFields(ctx, id)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logListSkip(ctx, id, "read status fields failed", err)
		}
		return model.StatusView{}, false
	}
	rec.Meta = *meta
	return model.StatusViewOf(rec), true
}

// Reclaim cancels and deletes an orphaned job record. Both steps tolerate a
// record that is already terminal or already gone, so concurrent listings
// racing on the same orphan converge without error.
func (s *JobService) Reclaim(ctx context.Context, jobID string) error {
	if err := s.store.Cancel(ctx, jobID); err != nil {
		return fmt.Errorf("cancel orphan %s: %w", jobID, err)
	}
	if err := s.store.Delete(ctx, jobID); err != nil {
		return fmt.Errorf("delete orphan %s: %w", jobID, err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "reclaimed orphaned job", "job_id", jobID)
	}
	if s.metrics != nil {
		s.metrics.OrphansReclaimed.Inc()
	}
	return nil
}

// Delete cancels and removes a job on behalf of its owner. Cancel runs
// before delete so a running execution does not keep writing to a record
// whose deletion is already visible to other readers.
func (s *JobService) Delete(ctx context.Context, caller, jobID string) error {
	if _, err := s.fetchAuthorized(ctx, caller, jobID); err != nil {
		s.countDeletion(resultLabel(err))
		return err
	}

	if err := s.store.Cancel(ctx, jobID); err != nil {
		s.countDeletion(metrics.ResultError)
		return err
	}
	if err := s.store.Delete(ctx, jobID); err != nil {
		s.countDeletion(metrics.ResultError)
		return err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job deleted", "job_id", jobID, "deleted_by", caller)
	}
	s.countDeletion(metrics.ResultSuccess)
	return nil
}

// FieldSizes reports the stored byte size of each record field for a job
// the caller owns, plus the total.
func (s *JobService) FieldSizes(ctx context.Context, caller, jobID string) (map[string]int64, int64, error) {
	if _, err := s.fetchAuthorized(ctx, caller, jobID); err != nil {
		return nil, 0, err
	}

	sizes, err := s.store.FieldSizes(ctx, jobID)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	for _, n := range sizes {
		total += n
	}
	return sizes, total, nil
}

// Health checks connectivity to the underlying store.
func (s *JobService) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}

// fetchAuthorized fetches a record and verifies the caller owns it.
func (s *JobService) fetchAuthorized(ctx context.Context, caller, jobID string) (*model.JobRecord, error) {
	rec, err := s.store.Fetch(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err = Authorize(caller, rec.Meta); err != nil {
		return nil, err
	}
	return rec, nil
}

// captureDiagnostics forwards raw failure info to the diagnostics sink.
// Best-effort: a sink failure never affects the caller's response.
func (s *JobService) captureDiagnostics(ctx context.Context, rec *model.JobRecord) {
	if s.diagnostics == nil {
		return
	}
	if err := s.diagnostics.Record(ctx, rec.ID, rec.FailureInfo); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "record failure diagnostics failed",
			"job_id", rec.ID, "error", err)
	}
}

func (s *JobService) logListSkip(ctx context.Context, id, msg string, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, "job_id", id, "error", err)
	}
}

func (s *JobService) countAdmission(result string) {
	if s.metrics != nil {
		s.metrics.Admissions.WithLabelValues(result).Inc()
	}
}

func (s *JobService) countDeletion(result string) {
	if s.metrics != nil {
		s.metrics.Deletions.WithLabelValues(result).Inc()
	}
}

func (s *JobService) countQuery(op string, err error) {
	if s.metrics != nil {
		s.metrics.Queries.WithLabelValues(op, resultLabel(err)).Inc()
	}
}

// resultLabel keeps client misses (unknown id, foreign owner) out of the
// error label so backend faults stand alone on dashboards.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case apperrors.IsPermission(err):
		return metrics.ResultDenied
	case apperrors.IsNotFound(err):
		return metrics.ResultNotFound
	default:
		return metrics.ResultError
	}
}
