// Package auth issues and verifies bearer tokens and checks passwords.
// There are no roles beyond the single implicit ROLE_USER.
package auth

import (
	"context"

	"github.com/dominikcirko/kanban-app/internal/common"
)

// Principal is an authenticated caller.
type Principal struct {
	Name        string
	Authorities []string
}

func NewPrincipal(name string) Principal {
	return Principal{Name: name, Authorities: []string{common.RoleUser}}
}

type principalKey struct{}

// WithPrincipal stores p in ctx for downstream handlers.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext reports the caller established by the authenticator.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
