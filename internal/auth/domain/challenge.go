package domain

import "time"

// Challenge is an outstanding one-time code for an identity. At most one
// exists per identity; issuing a new one replaces the old.
type Challenge struct {
	Identity  string
	CodeHash  string // deterministic fingerprint (base64url SHA-256)
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the challenge can no longer be redeemed at now.
// The expiry instant itself already counts as expired.
func (c Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Registration marks an identity that proved control of its code but has
// no principal yet. Complete-registration consumes it.
type Registration struct {
	Identity  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the registration window has closed at now.
func (r Registration) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
