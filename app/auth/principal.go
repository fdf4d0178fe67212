package auth

import (
	"context"
	"strings"
)

// Principal is the authenticated caller as asserted by the identity provider.
type Principal struct {
	UserID string
	Email  string
	Name   string
}

func (p *Principal) Valid() bool {
	return p != nil && strings.TrimSpace(p.Email) != ""
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
