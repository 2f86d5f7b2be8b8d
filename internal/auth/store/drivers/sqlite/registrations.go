package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/liftlog/internal/auth/domain"
)

type registrationsRepo struct {
	q *queries
}

func (r *registrationsRepo) PutRegistration(ctx context.Context, reg domain.Registration) error {
	return r.q.UpsertRegistration(ctx, registrationRow{
		Identity:  reg.Identity,
		ExpiresAt: toMillis(reg.ExpiresAt),
		CreatedAt: toMillis(reg.CreatedAt),
	})
}

func (r *registrationsRepo) GetRegistration(ctx context.Context, identity string) (domain.Registration, error) {
	row, err := r.q.GetRegistration(ctx, identity)
	if err != nil {
		return domain.Registration{}, mapNotFound(err)
	}
	return domain.Registration{
		Identity:  row.Identity,
		ExpiresAt: fromMillis(row.ExpiresAt),
		CreatedAt: fromMillis(row.CreatedAt),
	}, nil
}

func (r *registrationsRepo) DeleteRegistration(ctx context.Context, identity string) error {
	return r.q.DeleteRegistration(ctx, identity)
}

func (r *registrationsRepo) DeleteExpiredRegistrations(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredRegistrations(ctx, toMillis(now))
}
