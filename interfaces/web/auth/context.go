package auth

import (
	"context"

	"nppflow/domain/npp"
)

type contextKey struct{}

// WithUser stores the resolved site user on ctx.
func WithUser(ctx context.Context, user *npp.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the site user stored by the middleware.
func UserFromContext(ctx context.Context) (*npp.User, bool) {
	user, ok := ctx.Value(contextKey{}).(*npp.User)
	return user, ok && user != nil
}
