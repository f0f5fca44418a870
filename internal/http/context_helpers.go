package httpx

import "context"

// identityKey is an unexported context key type to avoid collisions across
// packages. Centralized here so all handlers and middleware use the same key.
type identityKey struct{}

// SetIdentityInContext returns a child context carrying the authenticated
// caller identity. An empty identity returns the original ctx unchanged.
func SetIdentityInContext(ctx context.Context, identity string) context.Context {
	if identity == "" {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller identity and a boolean indicating
// presence.
func IdentityFromContext(ctx context.Context) (string, bool) {
	if identity, ok := ctx.Value(identityKey{}).(string); ok && identity != "" {
		return identity, true
	}
	return "", false
}
