package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/liftlog/pkg/jwtx"
	"github.com/aussiebroadwan/liftlog/pkg/slogx"
)

// Error kinds written by AuthnMiddleware.
const (
	ErrorKindTokenMissing = "token_missing"
	ErrorKindTokenInvalid = "token_invalid"
	ErrorKindTokenExpired = "token_expired"
)

// AuthnMiddleware requires a bearer access token. A request without one
// gets 401; a request whose token fails verification gets 403, so clients
// can tell "log in" apart from "your credential was rejected".
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer`)
				WriteError(w, http.StatusUnauthorized, ErrorKindTokenMissing, "authorization bearer token required")
				return
			}

			claims, err := v.Verify(raw)
			switch {
			case err == nil:
			case errors.Is(err, jwtx.ErrExpired):
				writeBearerError(w, ErrorKindTokenExpired, "access token expired")
				return
			default:
				log.Warn("access token rejected", "err", err)
				writeBearerError(w, ErrorKindTokenInvalid, "access token invalid")
				return
			}

			ctx = contextWithClaims(ctx, claims)
			ctx = slogx.With(ctx, "sub", claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RFC 6750 error response for a presented but rejected bearer token.
func writeBearerError(w http.ResponseWriter, kind, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusForbidden, kind, desc)
}
