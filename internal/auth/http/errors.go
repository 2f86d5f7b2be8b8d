package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/liftlog/internal/auth/service"
	"github.com/aussiebroadwan/liftlog/pkg/authsdk"
	"github.com/aussiebroadwan/liftlog/pkg/httpx"
	"github.com/aussiebroadwan/liftlog/pkg/slogx"
)

// writeServiceError maps a service error onto its API error. Anything
// unrecognised is logged and reported as server_error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidIdentity):
		authsdk.ErrValidation.WithDetails(map[string]string{"identity": "must be a valid email address"}).WriteError(w)
	case errors.Is(err, service.ErrInvalidName):
		authsdk.ErrValidation.WithDetails(map[string]string{"name": "must be 2-64 printable characters"}).WriteError(w)

	case errors.Is(err, service.ErrChallengeNotFound),
		errors.Is(err, service.ErrRegistrationNotFound):
		authsdk.ErrChallengeNotFound.WriteError(w)
	case errors.Is(err, service.ErrChallengeExpired):
		authsdk.ErrChallengeExpired.WriteError(w)
	case errors.Is(err, service.ErrChallengeMismatch):
		authsdk.ErrChallengeMismatch.WriteError(w)
	case errors.Is(err, service.ErrAlreadyRegistered):
		authsdk.ErrAlreadyRegistered.WriteError(w)

	case errors.Is(err, service.ErrMalformedPayload):
		authsdk.ErrMalformedPayload.WriteError(w)
	case errors.Is(err, service.ErrInvalidSignature):
		authsdk.ErrInvalidSignature.WriteError(w)

	case errors.Is(err, service.ErrTokenMissing):
		authsdk.ErrTokenMissing.WriteError(w)
	case errors.Is(err, service.ErrTokenExpired):
		authsdk.ErrTokenExpired.WriteError(w)
	case errors.Is(err, service.ErrTokenInvalid):
		authsdk.ErrTokenInvalid.WriteError(w)

	case errors.Is(err, service.ErrPrincipalNotFound):
		authsdk.ErrNotFound.WithDescription("principal not found").WriteError(w)

	default:
		slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
		authsdk.ErrServerError.WriteError(w)
	}
}

// decodeRequest decodes a JSON body into v, writing a validation error and
// returning false if it cannot.
func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httpx.DecodeJSON(r, v); err != nil {
		authsdk.ErrValidation.WithDescription("request body must be a single JSON object").WriteError(w)
		return false
	}
	return true
}

// validate writes a validation error carrying details when there are any.
func validate(w http.ResponseWriter, details map[string]string) bool {
	if details == nil {
		return true
	}
	authsdk.ErrValidation.WithDetails(details).WriteError(w)
	return false
}
