package domain

import "time"

// TokenPair is what every successful login or refresh produces. The access
// token goes in the response body; the refresh token only ever travels in
// the refresh cookie.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
