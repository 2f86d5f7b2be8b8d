package sqlite

import (
	"context"

	"github.com/aussiebroadwan/liftlog/internal/auth/domain"
	"github.com/aussiebroadwan/liftlog/internal/auth/store"
)

type principalsRepo struct {
	q *queries
}

func (r *principalsRepo) GetPrincipalByID(ctx context.Context, id string) (domain.Principal, error) {
	row, err := r.q.GetPrincipalByID(ctx, id)
	if err != nil {
		return domain.Principal{}, mapNotFound(err)
	}
	return mapPrincipal(row), nil
}

func (r *principalsRepo) GetPrincipalByIdentity(ctx context.Context, identity string) (domain.Principal, error) {
	row, err := r.q.GetPrincipalByIdentity(ctx, identity)
	if err != nil {
		return domain.Principal{}, mapNotFound(err)
	}
	return mapPrincipal(row), nil
}

func (r *principalsRepo) CreatePrincipal(ctx context.Context, p domain.Principal) error {
	err := r.q.CreatePrincipal(ctx, principalRow{
		ID:        p.ID,
		Identity:  p.Identity,
		Name:      p.Name,
		CreatedAt: toMillis(p.CreatedAt),
		UpdatedAt: toMillis(p.UpdatedAt),
	}, mapStringNull(""))
	return mapConflict(err)
}

func (r *principalsRepo) DeletePrincipal(ctx context.Context, id string) error {
	n, err := r.q.DeletePrincipal(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapPrincipal(row principalRow) domain.Principal {
	return domain.Principal{
		ID:        row.ID,
		Identity:  row.Identity,
		Name:      row.Name,
		CreatedAt: fromMillis(row.CreatedAt),
		UpdatedAt: fromMillis(row.UpdatedAt),
	}
}
