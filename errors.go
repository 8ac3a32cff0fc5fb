package passwordless

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeAuthenticationFailed     = "AUTHENTICATION_FAILED"
	TextCodeUnsupportedConfiguration = "UNSUPPORTED_CONFIGURATION"
	TextCodeUnsupportedPhase         = "UNSUPPORTED_PHASE"
	TextCodeSubjectKeyMismatch       = "SUBJECT_KEY_MISMATCH"
	TextCodeMissingSubject           = "MISSING_SUBJECT"
	TextCodeTokenRevoked             = "TOKEN_REVOKED"
	TextCodeTokenInvalid             = "TOKEN_INVALID"
)

// Machine-readable failure reasons attached to AuthenticationFailed errors.
// These are for logs and callers, never for user-facing copy: the outward
// message stays identical across reasons so failed sign-ins cannot be used
// as an account-enumeration or forgery oracle.
const (
	ReasonInvalidToken      = "invalid token"
	ReasonInvalidPurpose    = "invalid purpose"
	ReasonInvalidSubject    = "invalid subject"
	ReasonNoMatchingSubject = "no matching subject"
	ReasonAmbiguousSubject  = "ambiguous subject"
	ReasonTokenRevoked      = "token revoked"
	ReasonIssuanceFailed    = "token issuance failed"
	ReasonLookupFailed      = "subject lookup failed"
)

// ErrMissingSubject is returned when a token subject is absent or unparsable.
var ErrMissingSubject = errors.New("missing or unparsable token subject", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingSubject).
	WithCode(errors.CodeBadRequest)

// ErrSubjectKeyMismatch is returned when the decoded subject's field set does
// not exactly equal the resource's primary-key field set. Extraneous fields
// are rejected too: a widened subject could be a crafted token trying to
// loosen the lookup.
var ErrSubjectKeyMismatch = errors.New("subject does not match resource primary key", errors.CategoryBadInput).
	WithTextCode(TextCodeSubjectKeyMismatch).
	WithCode(errors.CodeBadRequest)

// ErrTokenInvalid covers signature, expiry, and purpose failures. The message
// is deliberately generic; the specific cause lives in error metadata.
var ErrTokenInvalid = errors.New("invalid authentication token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrTokenRevoked is returned when a single-use token has already been consumed.
var ErrTokenRevoked = errors.New("token already consumed", errors.CategoryConflict).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(errors.CodeConflict)

// ErrUnsupportedConfiguration is returned when a sign-in token is presented to
// a strategy that has sign-in tokens disabled. This is a deployment bug, not
// an attacker-reachable condition, so it is modeled apart from auth failures.
var ErrUnsupportedConfiguration = errors.New("sign-in tokens are not enabled for this strategy", errors.CategoryConflict).
	WithTextCode(TextCodeUnsupportedConfiguration).
	WithCode(errors.CodeConflict)

// ErrUnsupportedPhase is returned when a phase outside the strategy's declared
// set is dispatched. Treated as an integration error.
var ErrUnsupportedPhase = errors.New("unsupported strategy phase", errors.CategoryBadInput).
	WithTextCode(TextCodeUnsupportedPhase).
	WithCode(errors.CodeBadRequest)

// NewAuthenticationFailed builds the umbrella error for attacker-reachable
// sign-in failures. The reason plus strategy/resource/action context ride in
// metadata for logging; the message is the same for every reason.
func NewAuthenticationFailed(reason string, cause error) *errors.Error {
	var err *errors.Error
	if cause != nil {
		err = errors.Wrap(cause, errors.CategoryAuth, "authentication failed")
	} else {
		err = errors.New("authentication failed", errors.CategoryAuth)
	}
	return err.
		WithTextCode(TextCodeAuthenticationFailed).
		WithCode(errors.CodeUnauthorized).
		WithMetadata(map[string]any{
			"reason": reason,
		})
}

// IsAuthenticationFailed reports whether err is a sign-in authentication failure.
func IsAuthenticationFailed(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == TextCodeAuthenticationFailed
}

// FailureReason extracts the machine-readable reason from an
// AuthenticationFailed error, or "" when none is present.
func FailureReason(err error) string {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return ""
	}
	if richErr.Metadata == nil {
		return ""
	}
	reason, _ := richErr.Metadata["reason"].(string)
	return reason
}

func withDispatchContext(err *errors.Error, strategy, resource, action string) *errors.Error {
	return err.WithMetadata(map[string]any{
		"strategy": strategy,
		"resource": resource,
		"action":   action,
	})
}
