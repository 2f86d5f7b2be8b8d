package authsdk_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/liftlog/pkg/authsdk"
	"github.com/aussiebroadwan/liftlog/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func newController(t *testing.T, fs *fakeServer, clk *clock, resend *authsdk.ResendPolicy) *authsdk.Controller {
	t.Helper()

	c := authsdk.NewController(authsdk.NewSDKClient(fs.URL), authsdk.ControllerOptions{
		Resend:        resend,
		WatchInterval: 10 * time.Millisecond,
		Logger:        slogx.Discard(),
		Now:           clk.Now,
	})
	t.Cleanup(c.Close)
	return c
}

func TestController_NewUserFlow(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	fs := newFakeServer(t, clk)
	c := newController(t, fs, clk, nil)

	require.Equal(t, authsdk.StateUnauthenticated, c.State())

	isNew, err := c.SubmitIdentity(ctx, "new@example.com")
	require.NoError(t, err)
	require.True(t, isNew)
	require.True(t, c.IsNewUser())
	require.Equal(t, authsdk.StateAwaitingChallenge, c.State())
	require.Equal(t, "new@example.com", c.Identity())

	t.Run("wrong code keeps the state", func(t *testing.T) {
		st, err := c.SubmitCode(ctx, "000000")
		require.ErrorIs(t, err, authsdk.ErrChallengeMismatch)
		require.Equal(t, authsdk.StateAwaitingChallenge, st)
		require.Equal(t, authsdk.StateAwaitingChallenge, c.State())
	})

	st, err := c.SubmitCode(ctx, goodCode)
	require.NoError(t, err)
	require.Equal(t, authsdk.StateAwaitingName, st)
	require.Empty(t, c.AccessToken())

	require.NoError(t, c.SubmitName(ctx, "Newbie"))
	require.Equal(t, authsdk.StateAuthenticated, c.State())
	require.NotEmpty(t, c.AccessToken())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "new@example.com", me.Identity)
}

func TestController_ExistingUserFlow(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	fs := newFakeServer(t, clk, "known@example.com")
	c := newController(t, fs, clk, nil)

	isNew, err := c.SubmitIdentity(ctx, "known@example.com")
	require.NoError(t, err)
	require.False(t, isNew)

	st, err := c.SubmitCode(ctx, goodCode)
	require.NoError(t, err)
	require.Equal(t, authsdk.StateAuthenticated, st)
	require.NotEmpty(t, c.AccessToken())
}

func TestController_SubmitIdentityAgainSwitchesIdentity(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	fs := newFakeServer(t, clk, "second@example.com")
	c := newController(t, fs, clk, nil)

	_, err := c.SubmitIdentity(ctx, "first@example.com")
	require.NoError(t, err)

	isNew, err := c.SubmitIdentity(ctx, "second@example.com")
	require.NoError(t, err)
	require.False(t, isNew)
	require.Equal(t, "second@example.com", c.Identity())
	require.Equal(t, authsdk.StateAwaitingChallenge, c.State())
}

func TestController_SignedPayloadLogin(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	fs := newFakeServer(t, clk)
	c := newController(t, fs, clk, nil)

	err := c.LoginWithSignedPayload(ctx, authsdk.SignedPayload{"id": "42", "hash": "bad"})
	require.ErrorIs(t, err, authsdk.ErrInvalidSignature)
	require.Equal(t, authsdk.StateUnauthenticated, c.State())

	require.NoError(t, c.LoginWithSignedPayload(ctx, authsdk.SignedPayload{"id": "42", "hash": "good"}))
	require.Equal(t, authsdk.StateAuthenticated, c.State())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "telegram:42", me.Identity)
}

func TestController_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	fs := newFakeServer(t, clk, "known@example.com")
	c := newController(t, fs, clk, nil)

	_, err := c.SubmitCode(ctx, goodCode)
	require.ErrorIs(t, err, authsdk.ErrInvalidState)

	require.ErrorIs(t, c.SubmitName(ctx, "Name"), authsdk.ErrInvalidState)
	require.ErrorIs(t, c.Resend(ctx), authsdk.ErrInvalidState)

	_, err = c.Refresh(ctx)
	require.ErrorIs(t, err, authsdk.ErrNotAuthenticated)

	_, err = c.ValidAccessToken(ctx)
	require.ErrorIs(t, err, authsdk.ErrNotAuthenticated)

	_, err = c.SubmitIdentity(ctx, "known@example.com")
	require.NoError(t, err)

	require.ErrorIs(t, c.SubmitName(ctx, "Name"), authsdk.ErrInvalidState)
	require.ErrorIs(t, c.LoginWithSignedPayload(ctx, authsdk.SignedPayload{"id": "1", "hash": "good"}), authsdk.ErrInvalidState)

	_, err = c.SubmitCode(ctx, goodCode)
	require.NoError(t, err)

	_, err = c.SubmitIdentity(ctx, "known@example.com")
	require.ErrorIs(t, err, authsdk.ErrInvalidState)
	require.Equal(t, int32(1), fs.sends.Load(), "rejected transitions must not reach the server")
}

func TestController_Logout(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	fs := newFakeServer(t, clk, "known@example.com")
	c := newController(t, fs, clk, nil)

	_, err := c.SubmitIdentity(ctx, "known@example.com")
	require.NoError(t, err)
	_, err = c.SubmitCode(ctx, goodCode)
	require.NoError(t, err)

	require.NoError(t, c.Logout(ctx))
	require.Equal(t, authsdk.StateUnauthenticated, c.State())
	require.Empty(t, c.AccessToken())
	require.Empty(t, c.Identity())
	require.Equal(t, int32(1), fs.logoutHits.Load())

	t.Run("from awaiting challenge", func(t *testing.T) {
		_, err := c.SubmitIdentity(ctx, "known@example.com")
		require.NoError(t, err)
		require.NoError(t, c.Logout(ctx))
		require.Equal(t, authsdk.StateUnauthenticated, c.State())
	})
}

func TestController_RefreshIsSingleFlight(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	fs := newFakeServer(t, clk, "known@example.com")
	c := newController(t, fs, clk, nil)

	_, err := c.SubmitIdentity(ctx, "known@example.com")
	require.NoError(t, err)
	_, err = c.SubmitCode(ctx, goodCode)
	require.NoError(t, err)
	before := c.AccessToken()

	fs.gated.Store(true)

	const callers = 8
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens[i], errs[i] = c.Refresh(ctx)
		}()
	}

	<-fs.refreshEnter
	// Let the remaining callers join the in-flight request.
	time.Sleep(50 * time.Millisecond)
	clk.Advance(time.Second)
	close(fs.refreshGate)
	wg.Wait()

	require.Equal(t, int32(1), fs.refreshHits.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		require.Equal(t, tokens[0], tokens[i])
	}
	require.NotEqual(t, before, tokens[0])
	require.Equal(t, tokens[0], c.AccessToken())
}

func TestController_WatchRefreshesExpiredToken(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	fs := newFakeServer(t, clk, "known@example.com")
	c := newController(t, fs, clk, nil)

	_, err := c.SubmitIdentity(ctx, "known@example.com")
	require.NoError(t, err)
	_, err = c.SubmitCode(ctx, goodCode)
	require.NoError(t, err)
	first := c.AccessToken()

	// A valid token is left alone.
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, fs.refreshHits.Load())

	clk.Advance(2 * time.Hour)

	require.Eventually(t, func() bool {
		return fs.refreshHits.Load() >= 1 && c.AccessToken() != first
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, authsdk.StateAuthenticated, c.State())

	token, err := c.ValidAccessToken(ctx)
	require.NoError(t, err)
	require.Equal(t, c.AccessToken(), token)
}

func TestController_FailedRefreshLogsOut(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	fs := newFakeServer(t, clk, "known@example.com")
	c := newController(t, fs, clk, nil)

	_, err := c.SubmitIdentity(ctx, "known@example.com")
	require.NoError(t, err)
	_, err = c.SubmitCode(ctx, goodCode)
	require.NoError(t, err)

	fs.failRefresh.Store(true)
	clk.Advance(2 * time.Hour)

	require.Eventually(t, func() bool {
		return c.State() == authsdk.StateUnauthenticated
	}, 2*time.Second, 10*time.Millisecond)
	require.Empty(t, c.AccessToken())
	require.Eventually(t, func() bool { return fs.logoutHits.Load() >= 1 }, time.Second, 10*time.Millisecond)

	_, err = c.Refresh(ctx)
	require.ErrorIs(t, err, authsdk.ErrNotAuthenticated)
}

func TestController_ResendThrottling(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	fs := newFakeServer(t, clk)

	lockPath := filepath.Join(t.TempDir(), "state", "lockout.json")
	store, err := authsdk.NewFileLockoutStore(lockPath)
	require.NoError(t, err)

	c := newController(t, fs, clk, authsdk.NewResendPolicy(store))

	_, err = c.SubmitIdentity(ctx, "spam@example.com")
	require.NoError(t, err)

	require.ErrorIs(t, c.Resend(ctx), authsdk.ErrResendCooldown)

	for range authsdk.DefaultMaxResends {
		clk.Advance(authsdk.DefaultResendCooldown)
		require.NoError(t, c.Resend(ctx))
	}
	require.Equal(t, int32(1+authsdk.DefaultMaxResends), fs.sends.Load())

	clk.Advance(authsdk.DefaultResendCooldown)
	require.ErrorIs(t, c.Resend(ctx), authsdk.ErrResendLocked)

	_, err = c.SubmitIdentity(ctx, "spam@example.com")
	require.ErrorIs(t, err, authsdk.ErrResendLocked)

	// A restarted client reading the same file is still locked out.
	restartedStore, err := authsdk.NewFileLockoutStore(lockPath)
	require.NoError(t, err)
	restarted := newController(t, fs, clk, authsdk.NewResendPolicy(restartedStore))

	_, err = restarted.SubmitIdentity(ctx, "spam@example.com")
	require.ErrorIs(t, err, authsdk.ErrResendLocked)
	require.Equal(t, int32(1+authsdk.DefaultMaxResends), fs.sends.Load())

	clk.Advance(authsdk.DefaultLockoutDuration)
	_, err = restarted.SubmitIdentity(ctx, "spam@example.com")
	require.NoError(t, err)
}

func TestController_AuthenticationResetsResendCounter(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	fs := newFakeServer(t, clk, "known@example.com")
	store := &authsdk.MemoryLockoutStore{}
	c := newController(t, fs, clk, authsdk.NewResendPolicy(store))

	_, err := c.SubmitIdentity(ctx, "known@example.com")
	require.NoError(t, err)
	clk.Advance(authsdk.DefaultResendCooldown)
	require.NoError(t, c.Resend(ctx))

	st, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, st.ResendAttemptCount)

	_, err = c.SubmitCode(ctx, goodCode)
	require.NoError(t, err)

	st, err = store.Load(ctx)
	require.NoError(t, err)
	require.Zero(t, st.ResendAttemptCount)
}

func TestController_NewIdentityResetsResendCounter(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	fs := newFakeServer(t, clk)
	store := &authsdk.MemoryLockoutStore{}
	c := newController(t, fs, clk, authsdk.NewResendPolicy(store))

	_, err := c.SubmitIdentity(ctx, "a@example.com")
	require.NoError(t, err)
	for range 2 {
		clk.Advance(authsdk.DefaultResendCooldown)
		require.NoError(t, c.Resend(ctx))
	}

	_, err = c.SubmitIdentity(ctx, "b@example.com")
	require.NoError(t, err)

	st, err := store.Load(ctx)
	require.NoError(t, err)
	require.Zero(t, st.ResendAttemptCount)

	clk.Advance(authsdk.DefaultResendCooldown)
	require.NoError(t, c.Resend(ctx))

	st, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, st.ResendAttemptCount)
	require.True(t, st.BlockedUntil.IsZero(), "one resend for a new identity must not lock out")

	t.Run("same identity keeps the count", func(t *testing.T) {
		_, err := c.SubmitIdentity(ctx, "b@example.com")
		require.NoError(t, err)

		st, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, st.ResendAttemptCount)
	})
}

func TestController_FailedResendIsNotCounted(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	fs := newFakeServer(t, clk)
	store := &authsdk.MemoryLockoutStore{}
	c := newController(t, fs, clk, authsdk.NewResendPolicy(store))

	_, err := c.SubmitIdentity(ctx, "a@example.com")
	require.NoError(t, err)
	clk.Advance(authsdk.DefaultResendCooldown)

	fs.failSend.Store(true)
	for range authsdk.DefaultMaxResends {
		require.ErrorIs(t, c.Resend(ctx), authsdk.ErrRateLimited)
	}

	st, err := store.Load(ctx)
	require.NoError(t, err)
	require.Zero(t, st.ResendAttemptCount)
	require.True(t, st.BlockedUntil.IsZero())

	fs.failSend.Store(false)
	require.NoError(t, c.Resend(ctx), "a failed send must not start the cool-down")

	st, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, st.ResendAttemptCount)
}

func TestController_AbandonedRefreshKeepsSession(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	fs := newFakeServer(t, clk, "known@example.com")
	c := newController(t, fs, clk, nil)

	_, err := c.SubmitIdentity(ctx, "known@example.com")
	require.NoError(t, err)
	_, err = c.SubmitCode(ctx, goodCode)
	require.NoError(t, err)
	before := c.AccessToken()

	fs.gated.Store(true)

	callerCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		_, err := c.Refresh(callerCtx)
		errCh <- err
	}()

	<-fs.refreshEnter
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	require.Equal(t, authsdk.StateAuthenticated, c.State())

	clk.Advance(time.Second)
	close(fs.refreshGate)

	require.Eventually(t, func() bool {
		return c.AccessToken() != before
	}, 2*time.Second, 10*time.Millisecond, "the shared refresh should still land")
	require.Equal(t, authsdk.StateAuthenticated, c.State())
	require.Zero(t, fs.logoutHits.Load())
}
