package authsdk

import (
	"strings"
	"unicode/utf8"

	"github.com/aussiebroadwan/liftlog/pkg/cryptox"
)

const (
	requiredReason = "required"

	maxIdentityLen = 254
	minNameLen     = 2
	maxNameLen     = 64
)

// Validate checks the request shape. Returns a map of field names to
// error messages, or nil if all fields are valid.
func (r SendOTPRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateIdentity(errs, r.Identity)
	return nilIfEmpty(errs)
}

// Validate checks the request shape.
func (r VerifyOTPRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateIdentity(errs, r.Identity)

	code := strings.TrimSpace(r.Code)
	switch {
	case code == "":
		errs["code"] = requiredReason
	case !cryptox.IsOTPFormat(code):
		errs["code"] = "must be 6 digits"
	}
	return nilIfEmpty(errs)
}

// Validate checks the request shape.
func (r CompleteRegistrationRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateIdentity(errs, r.Identity)

	name := strings.TrimSpace(r.Name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		errs["name"] = requiredReason
	case n < minNameLen:
		errs["name"] = "too short (min 2)"
	case n > maxNameLen:
		errs["name"] = "too long (max 64)"
	}
	return nilIfEmpty(errs)
}

func validateIdentity(errs map[string]string, identity string) {
	identity = strings.TrimSpace(identity)
	switch {
	case identity == "":
		errs["identity"] = requiredReason
	case len(identity) > maxIdentityLen:
		errs["identity"] = "too long (max 254)"
	}
}

func nilIfEmpty(errs map[string]string) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
