package cryptox

import (
	"encoding/base32"
	"encoding/binary"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

// OTPLength is the number of digits in a one-time code.
const OTPLength = 6

// otpSecretSize matches the RFC 4226 recommended 160-bit HOTP key.
const otpSecretSize = 20

var otpOpts = hotp.ValidateOpts{
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// GenerateOTP returns a fresh 6-digit numeric code. Each call derives the
// code from a new random HOTP key and counter, so codes are independent
// and carry no shared state between identities.
func GenerateOTP() (string, error) {
	key, err := RandomBytes(otpSecretSize)
	if err != nil {
		return "", err
	}
	ctr, err := RandomBytes(8)
	if err != nil {
		return "", err
	}

	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(key)
	code, err := hotp.GenerateCodeCustom(secret, binary.BigEndian.Uint64(ctr), otpOpts)
	if err != nil {
		return "", fmt.Errorf("cryptox: generate otp: %w", err)
	}
	return code, nil
}

// IsOTPFormat reports whether s looks like a code GenerateOTP could have
// produced.
func IsOTPFormat(s string) bool {
	if len(s) != OTPLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
