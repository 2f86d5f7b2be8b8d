package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/liftlog/internal/auth/domain"
	"github.com/aussiebroadwan/liftlog/internal/auth/store"
	"github.com/aussiebroadwan/liftlog/pkg/cryptox"
)

// DefaultChallengeTTL is how long an issued code stays verifiable.
const DefaultChallengeTTL = 5 * time.Minute

// ChallengeService issues and verifies one-time codes. At most one
// challenge exists per identity; issuing again replaces the previous one.
// Concurrent issues for the same identity are last-write-wins.
type ChallengeService struct {
	Challenges store.Challenges
	TTL        time.Duration
	Now        func() time.Time
}

func (s *ChallengeService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultChallengeTTL
}

// Issue records code for identity. Only the fingerprint of the code is
// stored.
func (s *ChallengeService) Issue(ctx context.Context, identity, code string) error {
	t := now(s.Now)
	return s.Challenges.PutChallenge(ctx, domain.Challenge{
		Identity:  identity,
		CodeHash:  cryptox.FingerprintToken(code),
		ExpiresAt: t.Add(s.ttl()),
		CreatedAt: t,
	})
}

// Verify checks code against the outstanding challenge for identity.
// A successful verification consumes the challenge. An expired challenge
// is purged. A wrong code leaves the challenge in place so the user can
// retry until it expires.
func (s *ChallengeService) Verify(ctx context.Context, identity, code string) error {
	c, err := s.Challenges.GetChallenge(ctx, identity)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrChallengeNotFound
		}
		return err
	}

	if c.Expired(now(s.Now)) {
		if err := s.Challenges.DeleteChallenge(ctx, identity); err != nil {
			return err
		}
		return ErrChallengeExpired
	}

	if !cryptox.FingerprintMatches(code, c.CodeHash) {
		return ErrChallengeMismatch
	}

	return s.Challenges.DeleteChallenge(ctx, identity)
}
