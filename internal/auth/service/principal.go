package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/liftlog/internal/auth/domain"
	"github.com/aussiebroadwan/liftlog/internal/auth/store"
)

type PrincipalService struct {
	Principals store.Principals
}

// GetPrincipal fetches a principal by subject id.
func (s *PrincipalService) GetPrincipal(ctx context.Context, id string) (domain.Principal, error) {
	p, err := s.Principals.GetPrincipalByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Principal{}, ErrPrincipalNotFound
	}
	return p, err
}
