package authsdk

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Resend policy defaults.
const (
	DefaultResendCooldown  = 59 * time.Second
	DefaultMaxResends      = 3
	DefaultLockoutDuration = 24 * time.Hour
)

// ResendPolicy throttles code resends. Two limits apply:
//
//   - a short cool-down after every send, held in memory;
//   - a lockout once MaxAttempts resends have been made, persisted through
//     Store so it survives restarts.
type ResendPolicy struct {
	Store           LockoutStore
	Cooldown        time.Duration
	MaxAttempts     int
	LockoutDuration time.Duration
	Now             func() time.Time

	mu            sync.Mutex
	cooldownUntil time.Time
}

// NewResendPolicy returns a policy with the default limits.
func NewResendPolicy(store LockoutStore) *ResendPolicy {
	return &ResendPolicy{
		Store:           store,
		Cooldown:        DefaultResendCooldown,
		MaxAttempts:     DefaultMaxResends,
		LockoutDuration: DefaultLockoutDuration,
	}
}

func (p *ResendPolicy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// CheckLocked returns ErrResendLocked while a lockout is in force.
func (p *ResendPolicy) CheckLocked(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, err := p.Store.Load(ctx)
	if err != nil {
		return err
	}
	return p.checkLocked(st, p.now())
}

func (p *ResendPolicy) checkLocked(st LockoutState, now time.Time) error {
	if now.Before(st.BlockedUntil) {
		return fmt.Errorf("%w until %s", ErrResendLocked, st.BlockedUntil.Format(time.RFC3339))
	}
	return nil
}

// StartCooldown begins the cool-down without counting an attempt. It is
// called after the initial send.
func (p *ResendPolicy) StartCooldown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cooldownUntil = p.now().Add(p.Cooldown)
}

// Allow reports whether a resend may be made now, without recording one.
func (p *ResendPolicy) Allow(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := p.allowLocked(ctx, p.now())
	return err
}

// Record counts a resend that has been sent. The attempt that reaches
// MaxAttempts arms the lockout for the ones after it.
func (p *ResendPolicy) Record(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, err := p.Store.Load(ctx)
	if err != nil {
		return err
	}
	return p.recordLocked(ctx, st, p.now())
}

// Attempt is Allow followed by Record, for callers whose send cannot fail.
func (p *ResendPolicy) Attempt(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	st, err := p.allowLocked(ctx, now)
	if err != nil {
		return err
	}
	return p.recordLocked(ctx, st, now)
}

func (p *ResendPolicy) allowLocked(ctx context.Context, now time.Time) (LockoutState, error) {
	st, err := p.Store.Load(ctx)
	if err != nil {
		return LockoutState{}, err
	}
	if err := p.checkLocked(st, now); err != nil {
		return LockoutState{}, err
	}
	if now.Before(p.cooldownUntil) {
		return LockoutState{}, fmt.Errorf("%w for %s", ErrResendCooldown, p.cooldownUntil.Sub(now).Round(time.Second))
	}
	return st, nil
}

func (p *ResendPolicy) recordLocked(ctx context.Context, st LockoutState, now time.Time) error {
	st.ResendAttemptCount++
	if st.ResendAttemptCount >= p.MaxAttempts {
		st.BlockedUntil = now.Add(p.LockoutDuration)
		st.ResendAttemptCount = 0
	}
	if err := p.Store.Save(ctx, st); err != nil {
		return err
	}

	p.cooldownUntil = now.Add(p.Cooldown)
	return nil
}

// Reset clears the attempt counter. An active lockout is left alone.
func (p *ResendPolicy) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, err := p.Store.Load(ctx)
	if err != nil {
		return err
	}
	if st.ResendAttemptCount == 0 {
		return nil
	}
	st.ResendAttemptCount = 0
	return p.Store.Save(ctx, st)
}
