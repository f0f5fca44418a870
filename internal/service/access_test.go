package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemde-api/jobs-api/internal/domain/model"
	apperrors "github.com/nemde-api/jobs-api/internal/errors"
)

func TestAuthorizeOwner(t *testing.T) {
	meta := model.JobMeta{CreatedBy: "u1@example.com"}
	assert.NoError(t, Authorize("u1@example.com", meta))
}

func TestAuthorizeForeignCaller(t *testing.T) {
	meta := model.JobMeta{CreatedBy: "u1@example.com"}
	err := Authorize("u2@example.com", meta)
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))
}

func TestAuthorizeMissingCreator(t *testing.T) {
	// A record without a recorded creator is denied to everyone, including
	// callers with an empty identity of their own.
	err := Authorize("", model.JobMeta{})
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))

	err = Authorize("u1@example.com", model.JobMeta{})
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))
}
