package service

import (
	"github.com/nemde-api/jobs-api/internal/domain/model"
	apperrors "github.com/nemde-api/jobs-api/internal/errors"
)

// Authorize reports whether the caller identity may act on a job with the
// given ownership metadata. Only the job creator is allowed; a record with
// no recorded creator is denied to every caller, never treated as open.
func Authorize(caller string, meta model.JobMeta) error {
	if meta.CreatedBy == "" || meta.CreatedBy != caller {
		return apperrors.Permission("permission denied")
	}
	return nil
}
