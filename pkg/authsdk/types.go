package authsdk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ============================================================================
// OTP Login Types
// ============================================================================

// SendOTPRequest is the body of POST /auth/send-otp.
type SendOTPRequest struct {
	// Identity is the email address the code is sent to
	Identity string `json:"identity"`
}

// SendOTPResponse tells the caller whether the identity still has to
// register once the code is verified.
type SendOTPResponse struct {
	IsNewUser bool `json:"isNewUser"`
}

// VerifyOTPRequest is the body of POST /auth/verify-otp.
type VerifyOTPRequest struct {
	Identity string `json:"identity"`
	Code     string `json:"code"`
}

// MessageEnterName is returned by verify-otp when the identity is new.
const MessageEnterName = "enter name"

// VerifyOTPResponse carries an access token for a known principal, or
// Message = "enter name" when registration must be completed first.
type VerifyOTPResponse struct {
	AccessToken string `json:"accessToken,omitempty"`
	Message     string `json:"message,omitempty"`
}

// NeedsName reports whether the response is a name prompt.
func (r VerifyOTPResponse) NeedsName() bool {
	return r.AccessToken == ""
}

// CompleteRegistrationRequest is the body of POST /auth/complete-registration.
type CompleteRegistrationRequest struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse is returned by every endpoint that starts or renews a
// session. The refresh token never appears in a body; it travels in the
// refresh_token cookie.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// LogoutResponse is the body of a successful POST /logout.
type LogoutResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// Signed Payload
// ============================================================================

// SignedPayload is the flat field set produced by the third-party login
// widget, including its "hash". The widget sends some fields (id,
// auth_date) as JSON numbers; they are kept in their decimal text form so
// the signature is computed over exactly what was signed.
type SignedPayload map[string]string

// UnmarshalJSON accepts a flat object of strings, numbers and booleans.
// Null values are dropped. Nested objects and arrays are rejected.
func (p *SignedPayload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("signed payload must be a JSON object")
	}

	out := make(SignedPayload, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			return fmt.Errorf("signed payload field %q must be a scalar", k)
		}
	}
	*p = out
	return nil
}

// ============================================================================
// Principal Types
// ============================================================================

// MeResponse describes the authenticated principal (GET /auth/me).
type MeResponse struct {
	SubjectID string `json:"subjectId"`
	Identity  string `json:"identity"`
	Name      string `json:"name"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`

	// ChallengeStore indicates where outstanding codes are kept
	ChallengeStore string `json:"challenge_store"`
}
