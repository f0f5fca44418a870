package httpx

import (
	"net/http"

	"github.com/nemde-api/jobs-api/internal/service"
)

// HealthHandlers exposes liveness checks against the shared store.
type HealthHandlers struct {
	Svc *service.JobService
}

// Health reports whether the store connection is usable.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Health(r.Context()); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "store_unavailable", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
