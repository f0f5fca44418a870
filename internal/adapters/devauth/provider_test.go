package devauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderRequiresEmail(t *testing.T) {
	_, err := NewProvider("")
	assert.Error(t, err)
}

func TestIdentifyReturnsFixedIdentity(t *testing.T) {
	p, err := NewProvider("dev@example.com")
	require.NoError(t, err)

	got, err := p.Identify(context.Background(), "any-token")
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", got)
}
