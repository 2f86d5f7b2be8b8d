package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/liftlog/internal/auth/domain"
)

type challengesRepo struct {
	q *queries
}

func (r *challengesRepo) PutChallenge(ctx context.Context, c domain.Challenge) error {
	return r.q.UpsertChallenge(ctx, challengeRow{
		Identity:  c.Identity,
		CodeHash:  c.CodeHash,
		ExpiresAt: toMillis(c.ExpiresAt),
		CreatedAt: toMillis(c.CreatedAt),
	})
}

func (r *challengesRepo) GetChallenge(ctx context.Context, identity string) (domain.Challenge, error) {
	row, err := r.q.GetChallenge(ctx, identity)
	if err != nil {
		return domain.Challenge{}, mapNotFound(err)
	}
	return domain.Challenge{
		Identity:  row.Identity,
		CodeHash:  row.CodeHash,
		ExpiresAt: fromMillis(row.ExpiresAt),
		CreatedAt: fromMillis(row.CreatedAt),
	}, nil
}

func (r *challengesRepo) DeleteChallenge(ctx context.Context, identity string) error {
	return r.q.DeleteChallenge(ctx, identity)
}

func (r *challengesRepo) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredChallenges(ctx, toMillis(now))
}
