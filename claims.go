package passwordless

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes recognized by this package. A token is only ever valid for
// the single purpose it was minted with.
const (
	// PurposeSignIn tags single-use tokens that complete a sign-in.
	PurposeSignIn = "sign_in"
	// PurposeSession tags the longer-lived token reissued after a
	// successful sign-in.
	PurposeSession = "session"
)

// Claims is the verified payload of a bearer token. Claims are immutable
// once verified; downstream stages read them through this interface.
type Claims interface {
	Subject() string
	TokenPurpose() string
	TokenTenant() string
	Expires() time.Time
	IssuedAt() time.Time
}

// SignInClaims is the concrete claim set carried by sign-in and session
// tokens: the registered JWT claims plus the purpose discriminator and an
// optional opaque tenant.
type SignInClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose,omitempty"`
	Tenant  string `json:"tenant,omitempty"`
}

// Verify interface compliance
var _ Claims = (*SignInClaims)(nil)

// Subject returns the encoded subject claim.
func (c *SignInClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// TokenPurpose returns the purpose discriminator.
func (c *SignInClaims) TokenPurpose() string {
	return c.Purpose
}

// TokenTenant returns the opaque tenant claim, if any.
func (c *SignInClaims) TokenTenant() string {
	return c.Tenant
}

// Expires returns the expiration time.
func (c *SignInClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time.
func (c *SignInClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
