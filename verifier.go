package passwordless

import (
	"context"

	"github.com/goliatone/go-errors"
)

// TokenVerifier validates a bearer token for a specific resource and purpose.
// Signature and expiry checks are delegated to the TokenService; this layer
// adds the purpose binding. All failures share the same outward message so a
// caller cannot tell a forged signature from a purpose mismatch.
type TokenVerifier struct {
	tokens TokenService
	logger Logger
}

// NewTokenVerifier creates a verifier backed by the given token service.
func NewTokenVerifier(tokens TokenService) *TokenVerifier {
	return &TokenVerifier{
		tokens: tokens,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the verifier.
func (v *TokenVerifier) WithLogger(logger Logger) *TokenVerifier {
	if logger != nil {
		v.logger = logger
	}
	return v
}

// Verify parses rawToken and checks its purpose claim against the expected
// purpose for the calling pipeline stage. The returned claims are immutable.
func (v *TokenVerifier) Verify(ctx context.Context, rawToken string, resource *Resource, expectedPurpose string) (*SignInClaims, error) {
	claims, err := v.tokens.Parse(rawToken)
	if err != nil {
		v.logger.Debug("token verification failed",
			"resource", resource.SubjectName,
			"error", err.Error(),
		)
		return nil, err
	}

	if claims.Purpose != expectedPurpose {
		v.logger.Debug("token purpose mismatch",
			"resource", resource.SubjectName,
			"expected", expectedPurpose,
			"got", claims.Purpose,
		)
		return nil, ErrTokenInvalid.Clone().WithMetadata(map[string]any{
			"cause":    "purpose",
			"expected": expectedPurpose,
		})
	}

	return claims, nil
}

// verificationCause pulls the internal failure cause out of an ErrTokenInvalid
// error. Used by the pipeline to record a machine-readable reason without
// changing the user-facing message.
func verificationCause(err error) string {
	var richErr *errors.Error
	if !errors.As(err, &richErr) || richErr.Metadata == nil {
		return ""
	}
	cause, _ := richErr.Metadata["cause"].(string)
	return cause
}
