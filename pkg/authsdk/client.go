package authsdk

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// DefaultTimeout bounds every request the SDK makes.
const DefaultTimeout = 10 * time.Second

// SDKClient is a low-level client for the LiftLog authentication service.
// It owns a cookie jar, so the refresh token cookie set by the server is
// replayed on refresh and logout without ever being exposed to callers.
// Most applications should drive it through a Controller.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client with a private cookie jar and the default
// timeout.
func NewSDKClient(baseURL string) *SDKClient {
	// cookiejar.New only fails on a bad PublicSuffixList, and we pass none.
	jar, _ := cookiejar.New(nil)

	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
			Jar:     jar,
		},
	}
}

// SendOTP asks the server to issue and deliver a code for identity.
func (c *SDKClient) SendOTP(ctx context.Context, identity string) (*SendOTPResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/send-otp", SendOTPRequest{Identity: identity}, "")
	if err != nil {
		return nil, err
	}

	var out SendOTPResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP submits the code. For a known identity the response carries an
// access token and the refresh cookie is stored in the jar.
func (c *SDKClient) VerifyOTP(ctx context.Context, identity, code string) (*VerifyOTPResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/verify-otp", VerifyOTPRequest{Identity: identity, Code: code}, "")
	if err != nil {
		return nil, err
	}

	var out VerifyOTPResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteRegistration creates the principal for a freshly verified
// identity.
func (c *SDKClient) CompleteRegistration(ctx context.Context, identity, name string) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/complete-registration", CompleteRegistrationRequest{Identity: identity, Name: name}, "")
	if err != nil {
		return nil, err
	}

	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignedPayloadAuth logs in with a payload from the third-party login widget.
func (c *SDKClient) SignedPayloadAuth(ctx context.Context, payload SignedPayload) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/signed-payload-auth", map[string]string(payload), "")
	if err != nil {
		return nil, err
	}

	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken exchanges the refresh cookie held in the jar for a new
// access token. The server rotates the cookie.
func (c *SDKClient) RefreshToken(ctx context.Context) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/refresh-token", nil, "")
	if err != nil {
		return nil, err
	}

	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout asks the server to clear the refresh cookie.
func (c *SDKClient) Logout(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/logout", nil, "")
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// Me returns the principal an access token belongs to.
func (c *SDKClient) Me(ctx context.Context, accessToken string) (*MeResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/auth/me", nil, accessToken)
	if err != nil {
		return nil, err
	}

	var out MeResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
