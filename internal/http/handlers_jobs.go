// Package httpx provides HTTP handlers and utilities for the jobs API.
package httpx

import (
	"errors"
	"io"
	"net/http"

	"github.com/nemde-api/jobs-api/internal/service"
)

// maxRequestBodySize caps job submission bodies (inline casefiles included).
const maxRequestBodySize = 10 << 20 // 10 MB

// JobHandlers provides HTTP handlers for job lifecycle operations.
type JobHandlers struct {
	Svc *service.JobService
}

// CreateJob handles HTTP requests to submit a new job.
func (h *JobHandlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	caller, ok := IdentityFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_body", Err: err})
		return
	}

	receipt, err := h.Svc.Admit(r.Context(), caller, body)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, receipt)
}

// GetStatus handles HTTP requests to retrieve the status of a specific job.
func (h *JobHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	caller, jobID, ok := callerAndJobID(w, r)
	if !ok {
		return
	}

	view, err := h.Svc.GetStatus(r.Context(), caller, jobID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// GetResults handles HTTP requests to retrieve the results of a specific job.
func (h *JobHandlers) GetResults(w http.ResponseWriter, r *http.Request) {
	caller, jobID, ok := callerAndJobID(w, r)
	if !ok {
		return
	}

	view, err := h.Svc.GetResults(r.Context(), caller, jobID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// ListStatuses handles HTTP requests to list every job visible to the caller.
func (h *JobHandlers) ListStatuses(w http.ResponseWriter, r *http.Request) {
	caller, ok := IdentityFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	views, err := h.Svc.ListStatuses(r.Context(), caller)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, views)
}

// DeleteJob handles HTTP requests to cancel and remove a job.
func (h *JobHandlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	caller, jobID, ok := callerAndJobID(w, r)
	if !ok {
		return
	}

	if err := h.Svc.Delete(r.Context(), caller, jobID); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Deleted job."})
}

// GetSize handles HTTP requests for per-field stored byte sizes of a job.
func (h *JobHandlers) GetSize(w http.ResponseWriter, r *http.Request) {
	caller, jobID, ok := callerAndJobID(w, r)
	if !ok {
		return
	}

	sizes, total, err := h.Svc.FieldSizes(r.Context(), caller, jobID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"job_id": jobID,
		"fields": sizes,
		"total":  total,
	})
}

// callerAndJobID resolves the caller identity and the {id} path value,
// writing the error response when either is missing.
func callerAndJobID(w http.ResponseWriter, r *http.Request) (caller, jobID string, ok bool) {
	caller, ok = IdentityFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return "", "", false
	}

	jobID = r.PathValue("id")
	if jobID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("job id is required"),
		})
		return "", "", false
	}
	return caller, jobID, true
}

func writeMissingIdentity(w http.ResponseWriter) {
	WriteError(w, ErrorParams{
		Code:    http.StatusUnauthorized,
		ErrCode: "authentication_required",
		Err:     errors.New("authentication required"),
	})
}
