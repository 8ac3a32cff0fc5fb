package passwordless

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, issuer string, audience jwt.ClaimStrings, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		issuer:     issuer,
		audience:   audience,
		logger:     logger,
	}
}

// NewTokenServiceFromConfig creates a TokenService from the shared Config.
func NewTokenServiceFromConfig(config Config, logger Logger) TokenService {
	return NewTokenService(
		[]byte(config.GetSigningKey()),
		config.GetIssuer(),
		jwt.ClaimStrings(config.GetAudience()),
		logger,
	)
}

// Issue signs the given claims with the configured key, filling in issuer,
// audience, and token ID when the caller left them empty.
func (ts *TokenServiceImpl) Issue(claims *SignInClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	if claims.Issuer == "" {
		claims.Issuer = ts.issuer
	}
	if len(claims.Audience) == 0 && len(ts.audience) > 0 {
		claims.Audience = make(jwt.ClaimStrings, len(ts.audience))
		copy(claims.Audience, ts.audience)
	}
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Parse validates a token string's signature and expiry, returning structured
// claims. Signature, malformed, and expired failures all surface as the same
// generic ErrTokenInvalid; the underlying cause stays in metadata for logs.
func (ts *TokenServiceImpl) Parse(tokenString string) (*SignInClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SignInClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService parse encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		cause := "malformed"
		if errors.Is(err, jwt.ErrTokenExpired) {
			cause = "expired"
		}
		return nil, errors.Wrap(err, ErrTokenInvalid.Category, ErrTokenInvalid.Message).
			WithTextCode(ErrTokenInvalid.TextCode).
			WithMetadata(map[string]any{"cause": cause})
	}

	if claims, ok := token.Claims.(*SignInClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService parse could not decode or validate claims")
	return nil, ErrTokenInvalid.Clone()
}
