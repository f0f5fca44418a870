package config

import (
	"fmt"
	"strings"
)

// AuthMode represents the identity resolution mode for the application.
type AuthMode string

const (
	// AuthModeOIDC verifies bearer ID tokens against an OIDC issuer.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeStatic uses a fixed identity (for development only).
	AuthModeStatic AuthMode = "static"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oidc", "static":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oidc, static)", v)
	}
}

// OIDCConfig contains OIDC identity verification configuration.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"jobs-api"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// StaticAuthConfig controls the static identity used when AUTH_MODE=static.
type StaticAuthConfig struct {
	Email string `env:"EMAIL" envDefault:"dev@example.com"`
}

// AuthConfig groups all identity-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oidc"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// Static configuration (used when Mode=static).
	Static StaticAuthConfig `envPrefix:"STATIC_AUTH_"`
}
