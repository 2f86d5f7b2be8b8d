package service

import (
	"errors"
	"time"
)

var (
	ErrInvalidIdentity = errors.New("invalid_identity")
	ErrInvalidName     = errors.New("invalid_name")

	ErrChallengeNotFound = errors.New("challenge_not_found")
	ErrChallengeExpired  = errors.New("challenge_expired")
	ErrChallengeMismatch = errors.New("challenge_mismatch")

	// ErrRegistrationNotFound means complete-registration was called for an
	// identity that has not just verified a code.
	ErrRegistrationNotFound = errors.New("registration_not_found")
	ErrAlreadyRegistered    = errors.New("already_registered")

	ErrMalformedPayload = errors.New("malformed_payload")
	ErrInvalidSignature = errors.New("invalid_signature")

	ErrTokenMissing = errors.New("token_missing")
	ErrTokenInvalid = errors.New("token_invalid")
	ErrTokenExpired = errors.New("token_expired")

	ErrPrincipalNotFound = errors.New("principal_not_found")
)

// now returns fn() when a clock has been injected.
func now(fn func() time.Time) time.Time {
	if fn != nil {
		return fn()
	}
	return time.Now()
}
