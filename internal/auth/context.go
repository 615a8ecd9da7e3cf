package auth

import (
	"context"

	"account-service/internal/domain"
)

// principalKey is unexported so only this package can write the binding.
type principalKey struct{}

// ContextWithPrincipal binds the authenticated principal to the request
// context. The binding dies with the request; nothing to tear down.
func ContextWithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext retrieves the principal established by the auth
// middleware.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}
