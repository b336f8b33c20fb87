// Package authctx carries the authenticated caller through request contexts.
package authctx

import "context"

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// Identity is the verified caller taken from a valid access token.
type Identity struct {
	UserID    string
	Username  string
	Role      string
	SessionID string
}

// WithIdentity returns a context with the caller's identity set. Handlers read
// it back via FromContext.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the caller identity and true if set; otherwise a zero
// Identity and false.
func FromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(identityKey).(Identity)
	return v, ok
}
