package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token lifetimes for the dual-token session.
const (
	// DefaultAccessTokenTTL is the lifetime of a bearer access token.
	DefaultAccessTokenTTL = time.Hour

	// DefaultRefreshTokenTTL is the lifetime of the cookie-bound refresh token.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// TokenType distinguishes access tokens from refresh tokens. It is carried
// in the "typ" claim so a token of one kind is never accepted as the other,
// even if the two signing secrets were ever misconfigured to match.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Claims are the claims carried by both token kinds.
type Claims struct {
	jwt.RegisteredClaims

	// Identity is the email address or provider-namespaced id the
	// principal authenticated with.
	Identity string `json:"identity"`

	// Type is either "access" or "refresh".
	Type TokenType `json:"typ"`
}

// NewClaims builds minimally-correct claims for a token of the given type.
func NewClaims(
	subject, identity string,
	typ TokenType,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Identity: identity,
		Type:     typ,
	}
}

// NewJTI returns a random identifier for the "jti" claim. Two tokens minted
// for the same subject within the same second still differ.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateType checks the "typ" claim.
func (c *Claims) ValidateType(expected TokenType) error {
	if expected == "" {
		return nil
	}
	if c.Type != expected {
		return ErrTypeMismatch
	}
	return nil
}

// ValidateExpiry checks exp and nbf against now, allowing leeway for clock
// skew. A token is valid up to and including the instant in exp.
func (c *Claims) ValidateExpiry(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}

// Expired reports whether the token had expired at now. It is the advisory
// check clients run on their own tokens.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt == nil || now.After(c.ExpiresAt.Time)
}
