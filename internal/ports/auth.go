// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/http.
package ports

import "context"

// IdentityProvider resolves an authenticated caller identity from a bearer
// credential. The identity is an opaque, email-like string; the job core
// only ever compares it against stored ownership metadata.
type IdentityProvider interface {
	Identify(ctx context.Context, credential string) (string, error)
}
