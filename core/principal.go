package core

import (
	"context"
	"sort"
)

// Principal is the verified caller handed to downstream handlers.
type Principal struct {
	Subject string   `json:"sub"`
	Scopes  []string `json:"scopes"` // sorted, unique
}

// Has reports whether the principal was granted scope.
func (p Principal) Has(scope string) bool {
	i := sort.SearchStrings(p.Scopes, scope)
	return i < len(p.Scopes) && p.Scopes[i] == scope
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
