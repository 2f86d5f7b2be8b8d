package http

import (
	"net/http"

	"github.com/aussiebroadwan/liftlog/internal/auth/service"
	"github.com/aussiebroadwan/liftlog/pkg/authsdk"
	"github.com/aussiebroadwan/liftlog/pkg/httpx"
)

// SignedPayloadHandler serves POST /signed-payload-auth.
type SignedPayloadHandler struct {
	SignedPayloadService *service.SignedPayloadService
	Cookies              CookieConfig
}

// ServeHTTP godoc
//
//	@Summary		Log in with a signed payload
//	@Description	Verifies a payload signed by the third-party login widget (HMAC-SHA256 over the sorted key=value lines, keyed with SHA-256 of the provider token). The principal is created on first login.
//	@Tags			Signed Payload
//	@Accept			json
//	@Produce		json
//	@Param			request	body		object					true	"widget fields including hash"
//	@Success		200		{object}	authsdk.TokenResponse	"accessToken"
//	@Failure		400		{object}	authsdk.APIError		"malformed_payload"
//	@Failure		401		{object}	authsdk.APIError		"invalid_signature"
//	@Failure		429		{object}	authsdk.APIError		"rate_limit_exceeded"
//	@Failure		500		{object}	authsdk.APIError		"server_error"
//	@Header			200		{string}	Set-Cookie				"refresh_token"
//	@Router			/signed-payload-auth [post].
func (h *SignedPayloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var payload authsdk.SignedPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		authsdk.ErrMalformedPayload.WithDescription("payload must be a flat JSON object").WriteError(w)
		return
	}

	_, pair, err := h.SignedPayloadService.Authenticate(r.Context(), payload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Cookies.setRefresh(w, pair.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{AccessToken: pair.AccessToken})
}
