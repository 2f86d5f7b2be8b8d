package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/liftlog/internal/auth/service"
	"github.com/aussiebroadwan/liftlog/internal/auth/store"
	"github.com/aussiebroadwan/liftlog/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/liftlog/internal/auth/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

var (
	accessSecret  = []byte("access-secret-0123456789abcdef-0123456789")
	refreshSecret = []byte("refresh-secret-0123456789abcdef-012345678")
)

// clock is a settable time source shared by every service under test.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
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

func newSQLiteStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTokenService(t *testing.T, st *sqlite.Store, clk *clock) *service.TokenService {
	t.Helper()

	ts, err := service.NewTokenService(service.TokenConfig{
		Issuer:        "liftlog-test",
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		Now:           clk.Now,
	}, st.Principals())
	require.NoError(t, err)
	return ts
}

// recordingDeliverer remembers the last code sent to each identity.
type recordingDeliverer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (d *recordingDeliverer) Deliver(_ context.Context, identity, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.codes == nil {
		d.codes = make(map[string]string)
	}
	d.codes[identity] = code
	return nil
}

func (d *recordingDeliverer) Code(identity string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.codes[identity]
}

type otpFixture struct {
	clock     *clock
	store     *sqlite.Store
	transient store.Transient
	tokens    *service.TokenService
	deliverer *recordingDeliverer
	svc       *service.OTPService
}

func newOTPFixture(t *testing.T) *otpFixture {
	t.Helper()

	clk := newClock()
	st := newSQLiteStore(t)
	transient := memory.New()
	tokens := newTokenService(t, st, clk)
	d := &recordingDeliverer{}

	return &otpFixture{
		clock:     clk,
		store:     st,
		transient: transient,
		tokens:    tokens,
		deliverer: d,
		svc: &service.OTPService{
			Principals:    st.Principals(),
			Registrations: transient.Registrations(),
			Challenges: &service.ChallengeService{
				Challenges: transient.Challenges(),
				Now:        clk.Now,
			},
			Tokens:    tokens,
			Deliverer: d,
			Now:       clk.Now,
		},
	}
}

// newSQLiteOTPFixture keeps challenges and registrations in the same
// database as principals, with registration completion in a transaction.
func newSQLiteOTPFixture(t *testing.T) *otpFixture {
	t.Helper()

	f := newOTPFixture(t)
	f.transient = f.store
	f.svc.Registrations = f.store.Registrations()
	f.svc.Challenges.Challenges = f.store.Challenges()
	f.svc.Tx = f.store
	f.svc.TxRegistrations = true
	return f
}

// failingCommit runs fn in a real transaction and then fails, so the
// transaction is rolled back.
type failingCommit struct {
	store.Store
	err error
}

func (f failingCommit) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		return f.err
	})
}
