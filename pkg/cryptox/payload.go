package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

// PayloadHashField is the field carrying the provider signature.
const PayloadHashField = "hash"

var (
	ErrPayloadHashMissing = errors.New("cryptox: signed payload has no hash")
	ErrPayloadSignature   = errors.New("cryptox: signed payload signature mismatch")
)

// PayloadSecret derives the HMAC key for provider-signed payloads from the
// raw provider token (the bot token, for Telegram login widgets).
func PayloadSecret(providerToken string) []byte {
	sum := sha256.Sum256([]byte(providerToken))
	return sum[:]
}

// DataCheckString builds the canonical string the provider signs: every
// field except the hash, sorted byte-wise by key, rendered as key=value
// and joined with newlines.
func DataCheckString(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == PayloadHashField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	return b.String()
}

// SignPayload returns the lower-case hex HMAC-SHA256 of the payload's data
// check string. Any hash field present in fields is ignored.
func SignPayload(fields map[string]string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(DataCheckString(fields)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignedPayload checks the hash field of fields against secret. The
// comparison is constant-time.
func VerifySignedPayload(fields map[string]string, secret []byte) error {
	got, ok := fields[PayloadHashField]
	if !ok || got == "" {
		return ErrPayloadHashMissing
	}

	want := SignPayload(fields, secret)
	if !hmac.Equal([]byte(want), []byte(got)) {
		return ErrPayloadSignature
	}
	return nil
}
