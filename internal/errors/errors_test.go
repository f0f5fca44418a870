package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	err := NotFound("no job with id abc")
	assert.Equal(t, "no job with id abc", err.Error())

	cause := errors.New("connection refused")
	wrapped := Wrap(cause, ErrCodeStore, "fetch job")
	assert.Equal(t, "fetch job: connection refused", wrapped.Error())
	assert.Equal(t, cause, errors.Unwrap(wrapped))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeStore, "no-op"))
	assert.Nil(t, Wrapf(nil, ErrCodeStore, "no-op %d", 1))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", NotFoundf("job %s not found", "abc"), IsNotFound},
		{"validation", Validation("invalid key: 'foo'"), IsValidation},
		{"permission", Permission("permission denied"), IsPermission},
		{"store", Storef("scan failed: %v", "timeout"), IsStore},
		{"engine", Engine("enqueue failed"), IsEngine},
		{"internal", Internalf("unexpected state"), IsInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(errors.New("plain")))
		})
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	inner := Permission("permission denied")
	outer := fmt.Errorf("list job: %w", inner)

	assert.True(t, IsPermission(outer))
	assert.False(t, IsNotFound(outer))
	assert.Equal(t, ErrCodePermission, GetCode(outer))
}

func TestGetCodeAndField(t *testing.T) {
	err := ValidationField("run_mode", "invalid 'run_mode': turbo")
	require.True(t, IsValidation(err))
	assert.Equal(t, ErrCodeValidation, GetCode(err))
	assert.Equal(t, "run_mode", GetField(err))

	plain := errors.New("plain")
	assert.Equal(t, ErrorCode(""), GetCode(plain))
	assert.Empty(t, GetField(plain))
}
