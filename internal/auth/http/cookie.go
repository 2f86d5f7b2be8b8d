package http

import (
	"net/http"
	"time"
)

// RefreshCookieName is the only place a refresh token is ever accepted from.
const RefreshCookieName = "refresh_token"

// CookieConfig controls how the refresh cookie is written.
type CookieConfig struct {
	// Secure marks the cookie HTTPS-only. Always set it in production.
	Secure bool

	// MaxAge is the cookie lifetime; it matches the refresh token TTL.
	MaxAge time.Duration
}

func (c CookieConfig) setRefresh(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

func (c CookieConfig) clearRefresh(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

func refreshFromCookie(r *http.Request) string {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
