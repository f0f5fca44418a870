package core

import (
	"context"

	"github.com/nemde-api/jobs-api/internal/domain/model"
)

// This file contains the port interfaces between the service layer and the
// store/queue adapters. Service implementations depend on these interfaces,
// not on concrete Redis or Postgres types.

// JobStore defines the protocol against the shared job store and queue.
// Fetch returns a not_found application error for unknown ids. Cancel and
// Delete are idempotent: a second attempt on a reclaimed or already-terminal
// job succeeds as a no-op.
type JobStore interface {
	// Create persists a new job record.
	Create(ctx context.Context, rec *model.JobRecord) error
	// Enqueue hands the record to the execution engine's queue and stamps
	// EnqueuedAt on the record.
	Enqueue(ctx context.Context, rec *model.JobRecord) error
	// Fetch retrieves a full job record by id.
	Fetch(ctx context.Context, id string) (*model.JobRecord, error)
	// FetchMeta retrieves only the ownership metadata for a job. It returns
	// (nil, nil) when the record exists without a meta field, or has vanished
	// since it was scanned; both cases are handled by reclamation.
	FetchMeta(ctx context.Context, id string) (*model.JobMeta, error)
	// FetchStatusFields retrieves the scalar status fields of a record
	// without decoding its payload or result blobs.
	FetchStatusFields(ctx context.Context, id string) (*model.JobRecord, error)
	// Cancel transitions a job out of its queue; no-op if already terminal
	// or missing.
	Cancel(ctx context.Context, id string) error
	// Delete removes a job record from the store; no-op if already gone.
	Delete(ctx context.Context, id string) error
	// ScanJobIDs enumerates every job id present in the store's job
	// namespace.
	ScanJobIDs(ctx context.Context) ([]string, error)
	// FieldSizes reports the byte size of each stored hash field for a job.
	FieldSizes(ctx context.Context, id string) (map[string]int64, error)
	// Health checks connectivity to the store.
	Health(ctx context.Context) error
}

// DiagnosticsSink records raw failure diagnostics for internal analysis.
// Raw diagnostics are never returned to callers; this sink is the only place
// they leave the store.
type DiagnosticsSink interface {
	Record(ctx context.Context, jobID, failureInfo string) error
}
