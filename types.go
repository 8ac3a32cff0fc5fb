package passwordless

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Resource describes the identity schema a strategy authenticates against:
// the subject name used in route templates and token subjects, the ordered
// primary-key field set, and the collaborators that resolve and revoke
// tokens for records of this resource.
type Resource struct {
	// SubjectName is the lowercase singular name used in routes and token
	// subjects, e.g. "user".
	SubjectName string
	// PrimaryKeyFields is the declared primary-key field set, in order.
	// Decoded subjects must match this set exactly.
	PrimaryKeyFields []string
	// Lookup executes exact-equality constrained lookups for this resource.
	Lookup LookupExecutor
	// Revocations is the single-use consumption store for this resource's
	// sign-in tokens.
	Revocations RevocationStore
}

// LookupExecutor runs a lookup constrained by exact equality on every field
// of the decoded subject identity. The query engine behind it is external;
// this layer only cares about the matched records.
type LookupExecutor interface {
	Find(ctx context.Context, identity *SubjectIdentity) ([]any, error)
}

// LookupExecutorFunc adapts a function into a LookupExecutor.
type LookupExecutorFunc func(ctx context.Context, identity *SubjectIdentity) ([]any, error)

// Find satisfies the LookupExecutor interface.
func (f LookupExecutorFunc) Find(ctx context.Context, identity *SubjectIdentity) ([]any, error) {
	if f == nil {
		return nil, nil
	}
	return f(ctx, identity)
}

// TokenService issues and parses bearer tokens. Signature and expiry math is
// delegated to the JWT library; callers only see claims or a typed failure.
type TokenService interface {
	Issue(claims *SignInClaims) (string, error)
	Parse(raw string) (*SignInClaims, error)
}

// LinkSender delivers a minted sign-in link out-of-band (email, SMS). The
// transport is external; failures are surfaced, not retried, by this layer.
type LinkSender interface {
	Send(ctx context.Context, recipient, link string) error
}

// LinkSenderFunc adapts a function into a LinkSender.
type LinkSenderFunc func(ctx context.Context, recipient, link string) error

// Send satisfies the LinkSender interface.
func (f LinkSenderFunc) Send(ctx context.Context, recipient, link string) error {
	if f == nil {
		return nil
	}
	return f(ctx, recipient, link)
}

// Config holds token signing options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	// GetSignInTokenExpiration is the sign-in token TTL in minutes.
	GetSignInTokenExpiration() int
	// GetSessionTokenExpiration is the reissued session token TTL in hours.
	GetSessionTokenExpiration() int
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] PWDLESS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] PWDLESS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] PWDLESS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
