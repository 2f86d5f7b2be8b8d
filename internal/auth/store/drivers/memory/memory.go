// Package memory keeps challenges and pending registrations in process
// memory. State is lost on restart and is not shared between replicas.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/liftlog/internal/auth/domain"
	"github.com/aussiebroadwan/liftlog/internal/auth/store"
)

// Store implements store.Transient. The mutex protects the maps only; a
// put racing a verify for the same identity resolves as last write wins.
type Store struct {
	mu            sync.Mutex
	challenges    map[string]domain.Challenge
	registrations map[string]domain.Registration
}

func New() *Store {
	return &Store{
		challenges:    make(map[string]domain.Challenge),
		registrations: make(map[string]domain.Registration),
	}
}

func (s *Store) Challenges() store.Challenges       { return challengesRepo{s} }
func (s *Store) Registrations() store.Registrations { return registrationsRepo{s} }

type challengesRepo struct{ s *Store }

func (r challengesRepo) PutChallenge(_ context.Context, c domain.Challenge) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.challenges[c.Identity] = c
	return nil
}

func (r challengesRepo) GetChallenge(_ context.Context, identity string) (domain.Challenge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.challenges[identity]
	if !ok {
		return domain.Challenge{}, store.ErrNotFound
	}
	return c, nil
}

func (r challengesRepo) DeleteChallenge(_ context.Context, identity string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.challenges, identity)
	return nil
}

func (r challengesRepo) DeleteExpiredChallenges(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for k, c := range r.s.challenges {
		if c.Expired(now) {
			delete(r.s.challenges, k)
			n++
		}
	}
	return n, nil
}

type registrationsRepo struct{ s *Store }

func (r registrationsRepo) PutRegistration(_ context.Context, reg domain.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.registrations[reg.Identity] = reg
	return nil
}

func (r registrationsRepo) GetRegistration(_ context.Context, identity string) (domain.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.registrations[identity]
	if !ok {
		return domain.Registration{}, store.ErrNotFound
	}
	return reg, nil
}

func (r registrationsRepo) DeleteRegistration(_ context.Context, identity string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.registrations, identity)
	return nil
}

func (r registrationsRepo) DeleteExpiredRegistrations(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for k, reg := range r.s.registrations {
		if reg.Expired(now) {
			delete(r.s.registrations, k)
			n++
		}
	}
	return n, nil
}

var _ store.Transient = (*Store)(nil)
