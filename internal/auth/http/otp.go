package http

import (
	"net/http"

	"github.com/aussiebroadwan/liftlog/internal/auth/service"
	"github.com/aussiebroadwan/liftlog/pkg/authsdk"
	"github.com/aussiebroadwan/liftlog/pkg/httpx"
)

// OTPHandler serves the passwordless login endpoints.
type OTPHandler struct {
	OTPService *service.OTPService
	Cookies    CookieConfig
}

// HandleSendOTP godoc
//
//	@Summary		Send a one-time code
//	@Description	Issues a 6-digit code for the identity, replacing any earlier one, and reports whether the identity still has to register.
//	@Tags			OTP
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SendOTPRequest	true	"identity"
//	@Success		200		{object}	authsdk.SendOTPResponse	"isNewUser"
//	@Failure		400		{object}	authsdk.APIError		"validation_error"
//	@Failure		429		{object}	authsdk.APIError		"rate_limit_exceeded"
//	@Failure		500		{object}	authsdk.APIError		"server_error"
//	@Router			/auth/send-otp [post].
func (h *OTPHandler) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SendOTPRequest
	if !decodeRequest(w, r, &req) || !validate(w, req.Validate()) {
		return
	}

	isNew, err := h.OTPService.SendCode(r.Context(), req.Identity)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SendOTPResponse{IsNewUser: isNew})
}

// HandleVerifyOTP godoc
//
//	@Summary		Verify a one-time code
//	@Description	Consumes the code. A known identity receives an access token and the refresh_token cookie; a new identity receives a name prompt.
//	@Tags			OTP
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.VerifyOTPRequest	true	"identity, code"
//	@Success		200		{object}	authsdk.VerifyOTPResponse	"accessToken, or message: enter name"
//	@Failure		400		{object}	authsdk.APIError			"validation_error, challenge_not_found, challenge_expired, challenge_mismatch"
//	@Failure		429		{object}	authsdk.APIError			"rate_limit_exceeded"
//	@Failure		500		{object}	authsdk.APIError			"server_error"
//	@Header			200		{string}	Set-Cookie					"refresh_token (existing principals only)"
//	@Router			/auth/verify-otp [post].
func (h *OTPHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyOTPRequest
	if !decodeRequest(w, r, &req) || !validate(w, req.Validate()) {
		return
	}

	res, err := h.OTPService.VerifyCode(r.Context(), req.Identity, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if res.NeedsName {
		httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyOTPResponse{Message: authsdk.MessageEnterName})
		return
	}

	h.Cookies.setRefresh(w, res.Tokens.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyOTPResponse{AccessToken: res.Tokens.AccessToken})
}

// HandleCompleteRegistration godoc
//
//	@Summary		Complete registration
//	@Description	Creates the principal for an identity that has just verified a code and starts its session.
//	@Tags			OTP
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CompleteRegistrationRequest	true	"identity, name"
//	@Success		201		{object}	authsdk.TokenResponse				"accessToken"
//	@Failure		400		{object}	authsdk.APIError					"validation_error, already_registered, challenge_not_found"
//	@Failure		429		{object}	authsdk.APIError					"rate_limit_exceeded"
//	@Failure		500		{object}	authsdk.APIError					"server_error"
//	@Header			201		{string}	Set-Cookie							"refresh_token"
//	@Router			/auth/complete-registration [post].
func (h *OTPHandler) HandleCompleteRegistration(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CompleteRegistrationRequest
	if !decodeRequest(w, r, &req) || !validate(w, req.Validate()) {
		return
	}

	_, pair, err := h.OTPService.CompleteRegistration(r.Context(), req.Identity, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Cookies.setRefresh(w, pair.RefreshToken)
	httpx.WriteJSON(w, http.StatusCreated, authsdk.TokenResponse{AccessToken: pair.AccessToken})
}
