package domain

import "context"

// AuthMethod describes how a caller authenticated with the API.
type AuthMethod string

const (
	AuthMethodJWT        AuthMethod = "jwt"
	AuthMethodServiceKey AuthMethod = "service_key"
)

// Principal captures normalized caller identity independent of auth mechanism.
type Principal struct {
	ID         string
	AuthMethod AuthMethod
	Subject    string
	Issuer     string
	Username   string
	Email      string
	Scopes     []string
}

// HasScope checks if the principal possesses a scope.
func (p Principal) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext returns the principal stored on ctx, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	principal, ok := ctx.Value(principalKey{}).(Principal)
	return principal, ok
}
