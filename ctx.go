package passwordless

import (
	"context"
)

var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithClaimsContext sets verified Claims in the given context. The pipeline
// attaches claims after the constrained lookup so later stages and the
// caller see tenant information without any ambient state.
func WithClaimsContext(r context.Context, claims Claims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts verified Claims from the context.
func GetClaims(ctx context.Context) (Claims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(Claims)
	return raw, ok
}

// TenantFromContext returns the tenant claim carried by the context's
// verified claims, or "" when absent.
func TenantFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok {
		return ""
	}
	return claims.TokenTenant()
}
