package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/liftlog/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Transient holds the short-lived login state: outstanding challenges and
// pending registrations. Both the sqlite and memory drivers provide it, so
// the deployment can pick where that state lives.
type Transient interface {
	Challenges() Challenges
	Registrations() Registrations
}

// Store is the root data access interface. Concrete drivers (sqlite)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and so nobody accidentally opens a transaction within a
// transaction.
type Store interface {
	Transient

	Principals() Principals

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Principals interface {
	// GetPrincipalByID is used by refresh to re-load the token subject.
	GetPrincipalByID(ctx context.Context, id string) (domain.Principal, error)

	// GetPrincipalByIdentity is the "find-by-identity" lookup used by every
	// login path.
	GetPrincipalByIdentity(ctx context.Context, identity string) (domain.Principal, error)

	// CreatePrincipal inserts a new principal (id is provided by app via
	// ULID). Returns ErrAlreadyExists if the identity is taken.
	CreatePrincipal(ctx context.Context, p domain.Principal) error

	// DeletePrincipal removes a principal. Tokens already issued to it stop
	// refreshing.
	DeletePrincipal(ctx context.Context, id string) error
}

type Challenges interface {
	// PutChallenge stores c, replacing any challenge for the same identity.
	PutChallenge(ctx context.Context, c domain.Challenge) error

	// GetChallenge returns the challenge for identity, expired or not.
	GetChallenge(ctx context.Context, identity string) (domain.Challenge, error)

	// DeleteChallenge removes the challenge for identity. Deleting a missing
	// challenge is not an error.
	DeleteChallenge(ctx context.Context, identity string) error

	// DeleteExpiredChallenges is housekeeping. Returns the number removed.
	DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error)
}

type Registrations interface {
	// PutRegistration stores r, replacing any registration for the identity.
	PutRegistration(ctx context.Context, r domain.Registration) error

	// GetRegistration returns the pending registration for identity.
	GetRegistration(ctx context.Context, identity string) (domain.Registration, error)

	// DeleteRegistration removes the registration for identity. Deleting a
	// missing registration is not an error.
	DeleteRegistration(ctx context.Context, identity string) error

	// DeleteExpiredRegistrations is housekeeping. Returns the number removed.
	DeleteExpiredRegistrations(ctx context.Context, now time.Time) (int64, error)
}
