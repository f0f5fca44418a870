// Package oidcauth verifies caller identities against an OIDC issuer. The
// API never mints tokens itself; callers present bearer ID tokens issued by
// the organization's IdP and this adapter verifies them and extracts the
// email claim used as the ownership identity.
package oidcauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Provider implements ports.IdentityProvider using OIDC ID-token
// verification.
type Provider struct {
	verifier *gooidc.IDTokenVerifier
}

// ProviderConfig holds configuration for the OIDC identity provider.
type ProviderConfig struct {
	ClientID     string
	DiscoveryURL string
	HTTPClient   *http.Client // Optional, defaults to a 30s-timeout client
}

// NewProvider creates an identity provider backed by the issuer's discovery
// document (single discovery fetch at startup).
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	return &Provider{
		verifier: op.Verifier(&gooidc.Config{ClientID: config.ClientID}),
	}, nil
}

// Identify verifies the bearer ID token and returns the email claim.
func (p *Provider) Identify(ctx context.Context, credential string) (string, error) {
	token, err := p.verifier.Verify(ctx, credential)
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := token.Claims(&claims); err != nil {
		return "", fmt.Errorf("parse claims: %w", err)
	}
	if claims.Email == "" {
		return "", errors.New("token has no email claim")
	}
	return claims.Email, nil
}
