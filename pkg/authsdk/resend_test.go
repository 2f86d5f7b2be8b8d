package authsdk_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/liftlog/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func newPolicy(clk *clock) (*authsdk.ResendPolicy, *authsdk.MemoryLockoutStore) {
	store := &authsdk.MemoryLockoutStore{}
	p := authsdk.NewResendPolicy(store)
	p.Now = clk.Now
	return p, store
}

func TestResendPolicy_Defaults(t *testing.T) {
	p := authsdk.NewResendPolicy(&authsdk.MemoryLockoutStore{})
	require.Equal(t, 59*time.Second, p.Cooldown)
	require.Equal(t, 3, p.MaxAttempts)
	require.Equal(t, 24*time.Hour, p.LockoutDuration)
}

func TestResendPolicy_Cooldown(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	p, _ := newPolicy(clk)

	// Nothing sent yet, so no cool-down.
	require.NoError(t, p.Attempt(ctx))
	require.ErrorIs(t, p.Attempt(ctx), authsdk.ErrResendCooldown)

	clk.Advance(58 * time.Second)
	require.ErrorIs(t, p.Attempt(ctx), authsdk.ErrResendCooldown)

	clk.Advance(time.Second)
	require.NoError(t, p.Attempt(ctx))
}

func TestResendPolicy_StartCooldownDoesNotCount(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	p, store := newPolicy(clk)

	p.StartCooldown()
	require.ErrorIs(t, p.Attempt(ctx), authsdk.ErrResendCooldown)

	st, err := store.Load(ctx)
	require.NoError(t, err)
	require.Zero(t, st.ResendAttemptCount)
}

func TestResendPolicy_Lockout(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	p, store := newPolicy(clk)

	for i := range 3 {
		require.NoError(t, p.Attempt(ctx), "attempt %d", i+1)
		clk.Advance(p.Cooldown)
	}

	st, err := store.Load(ctx)
	require.NoError(t, err)
	require.Zero(t, st.ResendAttemptCount, "counter resets once the lockout is armed")
	require.False(t, st.BlockedUntil.IsZero())

	require.ErrorIs(t, p.Attempt(ctx), authsdk.ErrResendLocked)
	require.ErrorIs(t, p.CheckLocked(ctx), authsdk.ErrResendLocked)

	clk.Advance(23 * time.Hour)
	require.ErrorIs(t, p.CheckLocked(ctx), authsdk.ErrResendLocked)

	clk.Advance(time.Hour)
	require.NoError(t, p.CheckLocked(ctx))
	require.NoError(t, p.Attempt(ctx))
}

func TestResendPolicy_ResetKeepsLockout(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	p, store := newPolicy(clk)

	require.NoError(t, p.Attempt(ctx))
	require.NoError(t, p.Reset(ctx))

	st, err := store.Load(ctx)
	require.NoError(t, err)
	require.Zero(t, st.ResendAttemptCount)

	blocked := clk.Now().Add(time.Hour)
	require.NoError(t, store.Save(ctx, authsdk.LockoutState{ResendAttemptCount: 2, BlockedUntil: blocked}))
	require.NoError(t, p.Reset(ctx))

	st, err = store.Load(ctx)
	require.NoError(t, err)
	require.Zero(t, st.ResendAttemptCount)
	require.True(t, st.BlockedUntil.Equal(blocked))
}

func TestResendPolicy_AllowDoesNotCount(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	p, store := newPolicy(clk)

	for range p.MaxAttempts + 1 {
		require.NoError(t, p.Allow(ctx))
	}
	st, err := store.Load(ctx)
	require.NoError(t, err)
	require.Zero(t, st.ResendAttemptCount)

	require.NoError(t, p.Record(ctx))
	require.ErrorIs(t, p.Allow(ctx), authsdk.ErrResendCooldown)

	st, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, st.ResendAttemptCount)
}
