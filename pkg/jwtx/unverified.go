package jwtx

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ParseUnverified decodes the claims of a token without checking its
// signature. Only use it on tokens the caller already trusts, for example to
// read the expiry of an access token this client received from the server.
func ParseUnverified(tokenStr string) (Claims, error) {
	if tokenStr == "" {
		return Claims{}, ErrMissing
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return claims, nil
}
