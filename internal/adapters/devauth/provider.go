// Package devauth provides a static identity provider for development and
// testing. Never enable it in production: it trusts every credential and
// returns a fixed identity.
package devauth

import (
	"context"
	"errors"
)

// Provider implements ports.IdentityProvider with a fixed identity.
type Provider struct {
	email string
}

// NewProvider creates a static identity provider for the given email.
func NewProvider(email string) (*Provider, error) {
	if email == "" {
		return nil, errors.New("email is required")
	}
	return &Provider{email: email}, nil
}

// Identify returns the configured identity regardless of credential.
func (p *Provider) Identify(_ context.Context, _ string) (string, error) {
	return p.email, nil
}
