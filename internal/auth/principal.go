package auth

import (
	"context"

	apperrors "github.com/feedora/backend/internal/errors"
)

// Principal is the authenticated caller of a request. The zero value is an
// anonymous caller.
type Principal struct {
	UserID string
	Name   string
}

// Anonymous reports whether no user is attached.
func (p Principal) Anonymous() bool {
	return p.UserID == ""
}

// Require returns ErrUnauthenticated for an anonymous principal.
func (p Principal) Require() error {
	if p.Anonymous() {
		return apperrors.ErrUnauthenticated
	}
	return nil
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx, or an anonymous one.
func FromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}
