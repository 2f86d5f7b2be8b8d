package http

import (
	"net/http"

	"github.com/aussiebroadwan/liftlog/internal/auth/service"
	"github.com/aussiebroadwan/liftlog/pkg/authsdk"
	"github.com/aussiebroadwan/liftlog/pkg/httpx"
	"github.com/aussiebroadwan/liftlog/pkg/slogx"
)

// RefreshHandler serves POST /refresh-token.
type RefreshHandler struct {
	TokenService *service.TokenService
	Cookies      CookieConfig
}

// ServeHTTP godoc
//
//	@Summary		Refresh the session
//	@Description	Exchanges the refresh_token cookie for a new access token and rotates the cookie. The token is read from the cookie only; bodies and headers are ignored.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	authsdk.TokenResponse	"accessToken"
//	@Failure		401	{object}	authsdk.APIError		"token_missing"
//	@Failure		403	{object}	authsdk.APIError		"token_invalid, token_expired"
//	@Failure		404	{object}	authsdk.APIError		"not_found"
//	@Failure		429	{object}	authsdk.APIError		"rate_limit_exceeded"
//	@Header			200	{string}	Set-Cookie				"refresh_token"
//	@Router			/refresh-token [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, pair, err := h.TokenService.Refresh(r.Context(), refreshFromCookie(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Debug("session refreshed", "sub", p.ID)

	h.Cookies.setRefresh(w, pair.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{AccessToken: pair.AccessToken})
}
