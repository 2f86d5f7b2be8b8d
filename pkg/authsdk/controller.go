package authsdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/liftlog/pkg/jwtx"
	"golang.org/x/sync/singleflight"
)

// DefaultWatchInterval is how often an authenticated Controller checks
// whether its access token has expired.
const DefaultWatchInterval = 15 * time.Minute

// State is where a Controller is in the login flow.
type State int

const (
	StateUnauthenticated State = iota
	StateAwaitingChallenge
	StateAwaitingName
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAwaitingChallenge:
		return "awaiting_challenge"
	case StateAwaitingName:
		return "awaiting_name"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ControllerOptions configures a Controller. Zero values pick defaults.
type ControllerOptions struct {
	// Resend throttles code resends. Defaults to a policy backed by a
	// MemoryLockoutStore; pass one with a FileLockoutStore for a lockout
	// that survives restarts.
	Resend *ResendPolicy

	// WatchInterval overrides DefaultWatchInterval.
	WatchInterval time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// Controller drives a client session through login, keeps its access token
// fresh, and tears it down on logout. All methods are safe for concurrent
// use.
type Controller struct {
	client        *SDKClient
	resend        *ResendPolicy
	logger        *slog.Logger
	now           func() time.Time
	watchInterval time.Duration

	refreshGroup singleflight.Group

	mu          sync.Mutex
	state       State
	identity    string
	isNewUser   bool
	accessToken string

	// session increments every time Authenticated is entered, so work
	// started for an old session never touches a newer one.
	session     uint64
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// NewController creates a Controller in StateUnauthenticated.
func NewController(client *SDKClient, opts ControllerOptions) *Controller {
	c := &Controller{
		client:        client,
		resend:        opts.Resend,
		logger:        opts.Logger,
		now:           opts.Now,
		watchInterval: opts.WatchInterval,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.resend == nil {
		c.resend = NewResendPolicy(&MemoryLockoutStore{})
	}
	if c.resend.Now == nil {
		c.resend.Now = c.now
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.watchInterval <= 0 {
		c.watchInterval = DefaultWatchInterval
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Identity returns the identity being logged in, if any.
func (c *Controller) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// IsNewUser reports whether the server said the submitted identity has no
// principal yet.
func (c *Controller) IsNewUser() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isNewUser
}

// AccessToken returns the held access token without checking it.
func (c *Controller) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// SubmitIdentity requests a code for identity and moves to
// StateAwaitingChallenge. Calling it again while awaiting a code switches
// to the new identity. It reports whether the identity is new.
//
// Starting a login, or switching identity, begins a fresh cycle and clears
// the resend count. An active lockout still applies.
func (c *Controller) SubmitIdentity(ctx context.Context, identity string) (bool, error) {
	c.mu.Lock()
	st, current := c.state, c.identity
	c.mu.Unlock()
	if st != StateUnauthenticated && st != StateAwaitingChallenge {
		return false, fmt.Errorf("%w: submit identity in %s", ErrInvalidState, st)
	}

	if err := c.resend.CheckLocked(ctx); err != nil {
		return false, err
	}

	resp, err := c.client.SendOTP(ctx, identity)
	if err != nil {
		return false, err
	}
	c.resend.StartCooldown()

	if st == StateUnauthenticated || identity != current {
		if err := c.resend.Reset(ctx); err != nil {
			c.logger.Warn("failed to reset resend counter", slog.Any("error", err))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateAwaitingChallenge
	c.identity = identity
	c.isNewUser = resp.IsNewUser
	return resp.IsNewUser, nil
}

// Resend requests a fresh code for the current identity, subject to the
// resend policy. Only a resend the server accepted counts towards the
// lockout.
func (c *Controller) Resend(ctx context.Context) error {
	c.mu.Lock()
	st, identity := c.state, c.identity
	c.mu.Unlock()
	if st != StateAwaitingChallenge {
		return fmt.Errorf("%w: resend in %s", ErrInvalidState, st)
	}

	if err := c.resend.Allow(ctx); err != nil {
		return err
	}

	if _, err := c.client.SendOTP(ctx, identity); err != nil {
		return err
	}
	return c.resend.Record(ctx)
}

// SubmitCode verifies code. A wrong or expired code leaves the state
// unchanged and returns the server's error. On success the new state is
// returned: StateAwaitingName for a new identity, else StateAuthenticated.
func (c *Controller) SubmitCode(ctx context.Context, code string) (State, error) {
	c.mu.Lock()
	st, identity := c.state, c.identity
	c.mu.Unlock()
	if st != StateAwaitingChallenge {
		return st, fmt.Errorf("%w: submit code in %s", ErrInvalidState, st)
	}

	resp, err := c.client.VerifyOTP(ctx, identity, code)
	if err != nil {
		return st, err
	}

	if resp.NeedsName() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.state = StateAwaitingName
		return c.state, nil
	}

	c.authenticated(ctx, resp.AccessToken)
	return StateAuthenticated, nil
}

// SubmitName completes registration for a new identity.
func (c *Controller) SubmitName(ctx context.Context, name string) error {
	c.mu.Lock()
	st, identity := c.state, c.identity
	c.mu.Unlock()
	if st != StateAwaitingName {
		return fmt.Errorf("%w: submit name in %s", ErrInvalidState, st)
	}

	resp, err := c.client.CompleteRegistration(ctx, identity, name)
	if err != nil {
		return err
	}

	c.authenticated(ctx, resp.AccessToken)
	return nil
}

// LoginWithSignedPayload logs in with a payload from the third-party login
// widget, skipping the code states entirely.
func (c *Controller) LoginWithSignedPayload(ctx context.Context, payload SignedPayload) error {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()
	if st != StateUnauthenticated {
		return fmt.Errorf("%w: signed payload login in %s", ErrInvalidState, st)
	}

	resp, err := c.client.SignedPayloadAuth(ctx, payload)
	if err != nil {
		return err
	}

	c.authenticated(ctx, resp.AccessToken)
	return nil
}

// Refresh renews the access token through the refresh cookie. Concurrent
// callers share one request, which runs to completion even if the caller
// that started it gives up. A failed refresh logs the session out; a caller
// whose own ctx ends just gets ctx.Err().
func (c *Controller) Refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	st, session := c.state, c.session
	c.mu.Unlock()
	if st != StateAuthenticated {
		return "", ErrNotAuthenticated
	}

	ch := c.refreshGroup.DoChan("refresh", func() (any, error) {
		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultTimeout)
		defer cancel()

		resp, err := c.client.RefreshToken(reqCtx)
		if err != nil {
			c.forceLogout(session, err)
			return "", err
		}

		c.mu.Lock()
		if c.session == session && c.state == StateAuthenticated {
			c.accessToken = resp.AccessToken
		}
		c.mu.Unlock()
		return resp.AccessToken, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ValidAccessToken returns the held access token, refreshing it once first
// if it has expired.
func (c *Controller) ValidAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	st, token := c.state, c.accessToken
	c.mu.Unlock()
	if st != StateAuthenticated {
		return "", ErrNotAuthenticated
	}

	if !c.tokenExpired(token) {
		return token, nil
	}
	return c.Refresh(ctx)
}

// Me fetches the authenticated principal.
func (c *Controller) Me(ctx context.Context) (*MeResponse, error) {
	token, err := c.ValidAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.client.Me(ctx, token)
}

// Logout returns to StateUnauthenticated from any state and asks the
// server to clear the refresh cookie. Local state is cleared even if the
// server call fails.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	done := c.resetLocked()
	c.mu.Unlock()

	if done != nil {
		<-done
	}
	return c.client.Logout(ctx)
}

// Close stops background work. The state is left as it is.
func (c *Controller) Close() {
	c.mu.Lock()
	done := c.stopWatchLocked()
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (c *Controller) authenticated(ctx context.Context, token string) {
	if err := c.resend.Reset(ctx); err != nil {
		c.logger.Warn("failed to reset resend counter", slog.Any("error", err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// A previous watcher would be for a session that no longer exists.
	c.stopWatchLocked()

	c.state = StateAuthenticated
	c.accessToken = token
	c.session++

	watchCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.watchCancel = cancel
	c.watchDone = done
	go c.watch(watchCtx, done)
}

// forceLogout tears down session after a failed refresh. It does not wait
// for the watcher, since it may be running on it.
func (c *Controller) forceLogout(session uint64, cause error) {
	c.mu.Lock()
	if c.session != session || c.state != StateAuthenticated {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	c.mu.Unlock()

	c.logger.Warn("session refresh failed, logging out", slog.Any("error", cause))

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	if err := c.client.Logout(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Debug("logout after failed refresh", slog.Any("error", err))
	}
}

// resetLocked clears the session and returns the watcher's done channel,
// if one was running.
func (c *Controller) resetLocked() chan struct{} {
	done := c.stopWatchLocked()
	c.state = StateUnauthenticated
	c.identity = ""
	c.isNewUser = false
	c.accessToken = ""
	return done
}

func (c *Controller) stopWatchLocked() chan struct{} {
	if c.watchCancel == nil {
		return nil
	}
	c.watchCancel()
	done := c.watchDone
	c.watchCancel = nil
	c.watchDone = nil
	return done
}

// watch checks the token immediately and then on every tick until ctx is
// cancelled.
func (c *Controller) watch(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.watchInterval)
	defer ticker.Stop()

	c.checkExpiry(ctx)

	for {
		select {
		case <-ticker.C:
			c.checkExpiry(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Controller) checkExpiry(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !c.tokenExpired(c.AccessToken()) {
		return
	}

	c.logger.Debug("access token expired, refreshing")
	if _, err := c.Refresh(ctx); err != nil {
		c.logger.Info("background refresh failed", slog.Any("error", err))
	}
}

// tokenExpired decodes exp without checking the signature. The token came
// from our own server, so only its expiry matters here. A token that
// cannot be decoded counts as expired.
func (c *Controller) tokenExpired(token string) bool {
	claims, err := jwtx.ParseUnverified(token)
	if err != nil {
		return true
	}
	return claims.Expired(c.now())
}
