package authsdk_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/liftlog/pkg/authsdk"
	"github.com/aussiebroadwan/liftlog/pkg/httpx"
	"github.com/aussiebroadwan/liftlog/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	goodCode     = "123456"
	refreshValue = "opaque-refresh"
)

var fakeSecret = []byte("fake-server-secret-0123456789abcdef0123")

// clock is a settable time source shared by the fake server and the
// controller under test.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Now()}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeServer implements the auth endpoints just far enough to drive a
// Controller. Codes are always goodCode; access tokens are real HS256
// tokens stamped with the shared clock.
type fakeServer struct {
	*httptest.Server
	t     *testing.T
	clock *clock

	mu    sync.Mutex
	known map[string]bool

	sends       atomic.Int32
	refreshHits atomic.Int32
	logoutHits  atomic.Int32
	failRefresh atomic.Bool
	failSend    atomic.Bool

	// When gated, refresh announces itself on refreshEnter and then blocks
	// until refreshGate is closed.
	gated        atomic.Bool
	refreshEnter chan struct{}
	refreshGate  chan struct{}
}

func newFakeServer(t *testing.T, clk *clock, known ...string) *fakeServer {
	t.Helper()

	fs := &fakeServer{
		t:            t,
		clock:        clk,
		known:        map[string]bool{},
		refreshEnter: make(chan struct{}, 1),
		refreshGate:  make(chan struct{}),
	}
	for _, id := range known {
		fs.known[id] = true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/send-otp", fs.sendOTP)
	mux.HandleFunc("POST /auth/verify-otp", fs.verifyOTP)
	mux.HandleFunc("POST /auth/complete-registration", fs.completeRegistration)
	mux.HandleFunc("POST /signed-payload-auth", fs.signedPayload)
	mux.HandleFunc("POST /refresh-token", fs.refresh)
	mux.HandleFunc("POST /logout", fs.logout)
	mux.HandleFunc("GET /auth/me", fs.me)

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) token(identity string) string {
	signer, err := jwtx.NewSignerHS256(fakeSecret)
	require.NoError(fs.t, err)

	raw, err := signer.Sign(jwtx.NewClaims("sub-"+identity, identity, jwtx.TypeAccess, time.Hour, "fake", fs.clock.Now()))
	require.NoError(fs.t, err)
	return raw
}

func (fs *fakeServer) startSession(w http.ResponseWriter, status int, identity string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshValue + ":" + identity,
		Path:     "/",
		HttpOnly: true,
	})
	httpx.WriteJSON(w, status, authsdk.TokenResponse{AccessToken: fs.token(identity)})
}

func (fs *fakeServer) sendOTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SendOTPRequest
	if json.NewDecoder(r.Body).Decode(&req) != nil {
		authsdk.ErrValidation.WriteError(w)
		return
	}
	if fs.failSend.Load() {
		authsdk.ErrRateLimited.WriteError(w)
		return
	}
	fs.sends.Add(1)

	fs.mu.Lock()
	isNew := !fs.known[req.Identity]
	fs.mu.Unlock()

	httpx.WriteJSON(w, http.StatusOK, authsdk.SendOTPResponse{IsNewUser: isNew})
}

func (fs *fakeServer) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyOTPRequest
	if json.NewDecoder(r.Body).Decode(&req) != nil {
		authsdk.ErrValidation.WriteError(w)
		return
	}
	if req.Code != goodCode {
		authsdk.ErrChallengeMismatch.WriteError(w)
		return
	}

	fs.mu.Lock()
	known := fs.known[req.Identity]
	fs.mu.Unlock()

	if !known {
		httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyOTPResponse{Message: authsdk.MessageEnterName})
		return
	}
	fs.startSession(w, http.StatusOK, req.Identity)
}

func (fs *fakeServer) completeRegistration(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CompleteRegistrationRequest
	if json.NewDecoder(r.Body).Decode(&req) != nil {
		authsdk.ErrValidation.WriteError(w)
		return
	}

	fs.mu.Lock()
	fs.known[req.Identity] = true
	fs.mu.Unlock()

	fs.startSession(w, http.StatusCreated, req.Identity)
}

func (fs *fakeServer) signedPayload(w http.ResponseWriter, r *http.Request) {
	var payload authsdk.SignedPayload
	if json.NewDecoder(r.Body).Decode(&payload) != nil || payload["hash"] == "" {
		authsdk.ErrMalformedPayload.WriteError(w)
		return
	}
	if payload["hash"] != "good" {
		authsdk.ErrInvalidSignature.WriteError(w)
		return
	}
	fs.startSession(w, http.StatusOK, "telegram:"+payload["id"])
}

func (fs *fakeServer) refresh(w http.ResponseWriter, r *http.Request) {
	fs.refreshHits.Add(1)
	if fs.gated.Load() {
		fs.refreshEnter <- struct{}{}
		<-fs.refreshGate
	}

	c, err := r.Cookie("refresh_token")
	if err != nil {
		authsdk.ErrTokenMissing.WriteError(w)
		return
	}
	if fs.failRefresh.Load() {
		authsdk.ErrTokenExpired.WriteError(w)
		return
	}

	identity := c.Value[len(refreshValue)+1:]
	fs.startSession(w, http.StatusOK, identity)
}

func (fs *fakeServer) logout(w http.ResponseWriter, _ *http.Request) {
	fs.logoutHits.Add(1)
	http.SetCookie(w, &http.Cookie{Name: "refresh_token", Path: "/", MaxAge: -1})
	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutResponse{Message: "logged out"})
}

func (fs *fakeServer) me(w http.ResponseWriter, r *http.Request) {
	raw, ok := httpx.BearerToken(r)
	if !ok {
		authsdk.ErrTokenMissing.WriteError(w)
		return
	}

	v := jwtx.NewVerifierHS256(fakeSecret, jwtx.VerifyOptions{Type: jwtx.TypeAccess, Now: fs.clock.Now})
	claims, err := v.Verify(raw)
	if err != nil {
		authsdk.ErrTokenInvalid.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
		SubjectID: claims.Subject,
		Identity:  claims.Identity,
		Name:      "Fake",
	})
}
