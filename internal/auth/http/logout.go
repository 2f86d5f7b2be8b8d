package http

import (
	"net/http"

	"github.com/aussiebroadwan/liftlog/pkg/authsdk"
	"github.com/aussiebroadwan/liftlog/pkg/httpx"
)

// LogoutHandler serves POST /logout. It always succeeds.
type LogoutHandler struct {
	Cookies CookieConfig
}

// ServeHTTP godoc
//
//	@Summary		Log out
//	@Description	Clears the refresh_token cookie. Tokens already issued stay valid until they expire.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	authsdk.LogoutResponse	"message"
//	@Header			200	{string}	Set-Cookie				"refresh_token with Max-Age=0"
//	@Router			/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Cookies.clearRefresh(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutResponse{Message: "logged out"})
}
