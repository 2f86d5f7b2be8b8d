package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/liftlog/pkg/httpx"
)

// Error kinds carried in the "error" field of every error response.
const (
	ErrorCodeValidation         = "validation_error"
	ErrorCodeChallengeNotFound  = "challenge_not_found"
	ErrorCodeChallengeExpired   = "challenge_expired"
	ErrorCodeChallengeMismatch  = "challenge_mismatch"
	ErrorCodeAlreadyRegistered  = "already_registered"
	ErrorCodeMalformedPayload   = "malformed_payload"
	ErrorCodeInvalidSignature   = "invalid_signature"
	ErrorCodeTokenMissing       = httpx.ErrorKindTokenMissing
	ErrorCodeTokenInvalid       = httpx.ErrorKindTokenInvalid
	ErrorCodeTokenExpired       = httpx.ErrorKindTokenExpired
	ErrorCodeNotFound           = "not_found"
	ErrorCodeRateLimitExceeded  = httpx.ErrorKindRateLimited
	ErrorCodeServerError        = "server_error"
	ErrorCodeMethodNotAllowed   = "method_not_allowed"
	ErrorCodeUnsupportedPayload = "unsupported_media_type"
)

// ============================================================================
// APIError
// ============================================================================

// APIError is the error shape shared by the server and the client. Handlers
// write it with WriteError; the client decodes non-2xx responses into it.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the stable, machine-checkable kind (e.g. "challenge_expired")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`

	// Details maps request fields to what is wrong with them. Only set
	// for validation errors.
	Details map[string]string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches any APIError with the same Code, so callers can write
// errors.Is(err, authsdk.ErrTokenExpired) against a decoded response.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, httpx.ErrorBody{
		Error:            e.Code,
		ErrorDescription: e.Description,
		Details:          e.Details,
	})
}

// WithDetails returns a copy of e carrying field-level details.
func (e *APIError) WithDetails(details map[string]string) *APIError {
	c := *e
	c.Details = details
	return &c
}

// WithDescription returns a copy of e with a different message.
func (e *APIError) WithDescription(desc string) *APIError {
	c := *e
	c.Description = desc
	return &c
}

// NewAPIError creates a new APIError.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

// ============================================================================
// Predefined API Errors
// ============================================================================

var (
	// ErrValidation is returned when the request body is malformed or a
	// field fails validation.
	ErrValidation = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeValidation,
		Description: "the request is malformed or missing required fields",
	}

	ErrChallengeNotFound = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeChallengeNotFound,
		Description: "no code has been issued for this identity",
	}

	ErrChallengeExpired = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeChallengeExpired,
		Description: "the code has expired, request a new one",
	}

	ErrChallengeMismatch = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeChallengeMismatch,
		Description: "the code is incorrect",
	}

	ErrAlreadyRegistered = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeAlreadyRegistered,
		Description: "this identity is already registered",
	}

	ErrMalformedPayload = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeMalformedPayload,
		Description: "the signed payload is missing required fields",
	}

	ErrInvalidSignature = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidSignature,
		Description: "the payload signature is invalid",
	}

	// ErrTokenMissing means no credential was presented at all.
	ErrTokenMissing = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTokenMissing,
		Description: "authentication required",
	}

	// ErrTokenInvalid means a credential was presented and rejected.
	ErrTokenInvalid = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeTokenInvalid,
		Description: "the token is invalid",
	}

	ErrTokenExpired = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeTokenExpired,
		Description: "the token has expired",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "not found",
	}

	ErrRateLimited = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeRateLimitExceeded,
		Description: "too many requests",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	ErrUnsupportedMediaType = &APIError{
		StatusCode:  http.StatusUnsupportedMediaType,
		Code:        ErrorCodeUnsupportedPayload,
		Description: "content-type must be application/json",
	}
)

// ============================================================================
// Client-side errors
// ============================================================================

var (
	// ErrTransport wraps every failure to get a response from the server
	// (connection refused, timeout, cancelled context).
	ErrTransport = errors.New("authsdk: transport failure")

	// ErrInvalidState is returned when a Controller method is called in a
	// state that does not allow it.
	ErrInvalidState = errors.New("authsdk: operation not allowed in current state")

	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("authsdk: not authenticated")

	// ErrResendCooldown is returned while the short resend throttle is active.
	ErrResendCooldown = errors.New("authsdk: resend cool-down active")

	// ErrResendLocked is returned while the 24h resend lockout is active.
	ErrResendLocked = errors.New("authsdk: resend locked out")
)

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp httpx.ErrorBody
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
			Details:     errResp.Details,
		}
	}

	// Fallback: create generic error from status code
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
