package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/nemde-api/jobs-api/internal/errors"
)

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError to adhere to the ≤3 params guideline.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// WriteAppError maps an application error to its HTTP status and writes a
// single human-readable reason. Validation and permission failures are
// client faults; store and engine failures surface as server faults.
func WriteAppError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation:
		code = http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		code = http.StatusNotFound
	case apperrors.ErrCodePermission:
		code = http.StatusForbidden
	case apperrors.ErrCodeStore, apperrors.ErrCodeEngine, apperrors.ErrCodeInternal:
		code = http.StatusInternalServerError
	}

	errCode := string(apperrors.GetCode(err))
	if errCode == "" {
		errCode = string(apperrors.ErrCodeInternal)
	}
	WriteError(w, ErrorParams{Code: code, ErrCode: errCode, Err: err})
}
