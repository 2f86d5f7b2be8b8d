package service

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxIdentityLen = 254
	minNameLen     = 2
	maxNameLen     = 64

	// SignedPayloadPrefix namespaces provider ids so they can never collide
	// with an email identity.
	SignedPayloadPrefix = "telegram:"
)

// NormalizeIdentity trims and lower-cases an email identity and checks it
// is a bare address (no display name, no angle brackets).
func NormalizeIdentity(identity string) (string, error) {
	identity = strings.ToLower(strings.TrimSpace(identity))
	if identity == "" {
		return "", fmt.Errorf("%w: identity is required", ErrInvalidIdentity)
	}
	if len(identity) > maxIdentityLen {
		return "", fmt.Errorf("%w: identity too long", ErrInvalidIdentity)
	}

	addr, err := mail.ParseAddress(identity)
	if err != nil || addr.Address != identity || addr.Name != "" {
		return "", fmt.Errorf("%w: not an email address", ErrInvalidIdentity)
	}
	return identity, nil
}

// NormalizeName trims a display name and checks its length in runes.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < minNameLen {
		return "", fmt.Errorf("%w: must be at least %d characters", ErrInvalidName, minNameLen)
	}
	if n > maxNameLen {
		return "", fmt.Errorf("%w: must be at most %d characters", ErrInvalidName, maxNameLen)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: contains control characters", ErrInvalidName)
		}
	}
	return name, nil
}
