// Package model defines the core data types and structures used throughout the jobs API.
package model

import (
	"encoding/json"
	"time"
)

// JobStatus represents the current status of a job as reported by the
// execution engine.
type JobStatus string

const (
	// JobStatusQueued indicates a job is waiting in the queue.
	JobStatusQueued JobStatus = "queued"
	// JobStatusStarted indicates a job is currently being executed.
	JobStatusStarted JobStatus = "started"
	// JobStatusFinished indicates a job has finished successfully.
	JobStatusFinished JobStatus = "finished"
	// JobStatusFailed indicates a job has failed to complete.
	JobStatusFailed JobStatus = "failed"
	// JobStatusDeferred indicates a job is waiting on a dependency.
	JobStatusDeferred JobStatus = "deferred"
	// JobStatusCancelled indicates a job was cancelled before completion.
	JobStatusCancelled JobStatus = "cancelled"
)

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusStarted, JobStatusFinished,
		JobStatusFailed, JobStatusDeferred, JobStatusCancelled:
		return true
	}
	return false
}

// Terminal returns true if the status is a terminal state. Cancelling a job
// in a terminal state is a no-op.
func (s JobStatus) Terminal() bool {
	return s == JobStatusFinished || s == JobStatusFailed || s == JobStatusCancelled
}

// JobMeta is the ownership metadata embedded in every live job record.
// CreatedBy carries the authenticated caller identity; a record whose meta
// cannot be read at all is an orphan and must be reclaimed, never surfaced.
type JobMeta struct {
	CreatedBy string `json:"created_by"`
	Label     string `json:"label,omitempty"`
}

// Patch describes a single modification applied to a stored case before
// execution. Path is a JMESPath expression addressing the element to modify.
type Patch struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
}

// JobOptions holds the recognized, validated job options.
type JobOptions struct {
	RunMode          string   `json:"run_mode,omitempty"`
	Algorithm        string   `json:"algorithm,omitempty"`
	SolutionFormat   string   `json:"solution_format,omitempty"`
	ReturnCasefile   *bool    `json:"return_casefile,omitempty"`
	SolutionElements []string `json:"solution_elements,omitempty"`
	Label            string   `json:"label,omitempty"`
}

// JobRequest is a validated job submission. Exactly one of CaseID or
// Casefile is set; Patches may only accompany CaseID.
type JobRequest struct {
	CaseID   string          `json:"case_id,omitempty"`
	Casefile json.RawMessage `json:"casefile,omitempty"`
	Options  JobOptions      `json:"options,omitempty"`
	Patches  []Patch         `json:"patches,omitempty"`
}

// JobRecord is the durable representation of a job in the shared store.
// The store owns persistence; this service owns the interpretation of Meta.
// Status, StartedAt, EndedAt, Result, and FailureInfo are written by the
// execution engine as the job runs.
type JobRecord struct {
	ID          string
	Func        string
	Args        *JobRequest
	Status      JobStatus
	CreatedAt   time.Time
	EnqueuedAt  *time.Time
	StartedAt   *time.Time
	EndedAt     *time.Time
	Timeout     time.Duration
	Meta        JobMeta
	Result      json.RawMessage
	FailureInfo string
	ResultTTL   time.Duration
	FailureTTL  time.Duration
}

// AdmissionReceipt is the acknowledgment returned immediately after a job is
// accepted and enqueued. Field order matches the response contract.
type AdmissionReceipt struct {
	JobID      string     `json:"job_id"`
	CreatedAt  time.Time  `json:"created_at"`
	EnqueuedAt *time.Time `json:"enqueued_at"`
	Timeout    int64      `json:"timeout"`
	Status     JobStatus  `json:"status"`
	Label      string     `json:"label,omitempty"`
}

// StatusView is the caller-visible snapshot of a job's state.
type StatusView struct {
	JobID      string     `json:"job_id"`
	Status     JobStatus  `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	EnqueuedAt *time.Time `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at"`
	Timeout    int64      `json:"timeout"`
	Label      string     `json:"label,omitempty"`
}

// ResultsView extends StatusView with the job outcome. FailureInfo is always
// an opaque marker; raw diagnostics are never returned to the caller.
type ResultsView struct {
	StatusView
	FailureInfo string          `json:"failure_info,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// StatusViewOf builds a StatusView from a record.
func StatusViewOf(rec *JobRecord) StatusView {
	return StatusView{
		JobID:      rec.ID,
		Status:     rec.Status,
		CreatedAt:  rec.CreatedAt,
		EnqueuedAt: rec.EnqueuedAt,
		StartedAt:  rec.StartedAt,
		EndedAt:    rec.EndedAt,
		Timeout:    int64(rec.Timeout / time.Second),
		Label:      rec.Meta.Label,
	}
}
