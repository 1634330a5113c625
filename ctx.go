package auth

import (
	"context"
)

var principalCtxKey = &contextKey{"principal"}

type contextKey struct {
	name string
}

// WithPrincipal sets the Principal in the given context
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, principal)
}

// PrincipalFromContext finds the Principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok && raw != nil
}

// AuthenticateContext runs the gate over raw and stores the resulting
// Principal in ctx.
func AuthenticateContext(ctx context.Context, gate *Gate, raw string) (context.Context, *Principal, error) {
	principal, err := gate.Authenticate(ctx, raw)
	if err != nil {
		return ctx, nil, err
	}
	return WithPrincipal(ctx, principal), principal, nil
}
