package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/liftlog/internal/auth/domain"
	"github.com/aussiebroadwan/liftlog/internal/auth/store"
	"github.com/aussiebroadwan/liftlog/pkg/jwtx"
)

// ErrSecretReuse is returned when the access and refresh secrets are equal.
var ErrSecretReuse = errors.New("access and refresh secrets must differ")

// TokenConfig configures a TokenService.
type TokenConfig struct {
	Issuer        string
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

// TokenService mints and checks the access/refresh token pair. It keeps
// no per-token state, so verification is safe from any goroutine.
type TokenService struct {
	Principals store.Principals

	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	accessSigner  *jwtx.HS256Signer
	refreshSigner *jwtx.HS256Signer
	access        *jwtx.HS256Verifier
	refresh       *jwtx.HS256Verifier
}

// NewTokenService validates the secrets and builds signers and verifiers
// for both token kinds.
func NewTokenService(cfg TokenConfig, principals store.Principals) (*TokenService, error) {
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, ErrSecretReuse
	}

	accessSigner, err := jwtx.NewSignerHS256(cfg.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("access secret: %w", err)
	}
	refreshSigner, err := jwtx.NewSignerHS256(cfg.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("refresh secret: %w", err)
	}

	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &TokenService{
		Principals:    principals,
		issuer:        cfg.Issuer,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           cfg.Now,
		accessSigner:  accessSigner,
		refreshSigner: refreshSigner,
		access: jwtx.NewVerifierHS256(cfg.AccessSecret, jwtx.VerifyOptions{
			Issuer: cfg.Issuer,
			Type:   jwtx.TypeAccess,
			Now:    cfg.Now,
		}),
		refresh: jwtx.NewVerifierHS256(cfg.RefreshSecret, jwtx.VerifyOptions{
			Issuer: cfg.Issuer,
			Type:   jwtx.TypeRefresh,
			Now:    cfg.Now,
		}),
	}, nil
}

// AccessVerifier is what the bearer middleware checks requests with.
func (s *TokenService) AccessVerifier() jwtx.Verifier { return s.access }

// Issue mints a fresh pair for p. Every call produces new tokens.
func (s *TokenService) Issue(p domain.Principal) (domain.TokenPair, error) {
	t := s.now()

	accessClaims := jwtx.NewClaims(p.ID, p.Identity, jwtx.TypeAccess, s.accessTTL, s.issuer, t)
	access, err := s.accessSigner.Sign(accessClaims)
	if err != nil {
		return domain.TokenPair{}, err
	}

	refreshClaims := jwtx.NewClaims(p.ID, p.Identity, jwtx.TypeRefresh, s.refreshTTL, s.issuer, t)
	refresh, err := s.refreshSigner.Sign(refreshClaims)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

// VerifyAccess checks an access token and returns the principal it names.
// Only ID and Identity are populated; no store lookup is made.
func (s *TokenService) VerifyAccess(raw string) (domain.Principal, error) {
	claims, err := s.access.Verify(raw)
	if err != nil {
		return domain.Principal{}, mapTokenError(err)
	}
	return domain.Principal{ID: claims.Subject, Identity: claims.Identity}, nil
}

// VerifyRefresh checks a refresh token and re-loads its subject.
func (s *TokenService) VerifyRefresh(ctx context.Context, raw string) (domain.Principal, error) {
	claims, err := s.refresh.Verify(raw)
	if err != nil {
		return domain.Principal{}, mapTokenError(err)
	}

	p, err := s.Principals.GetPrincipalByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Principal{}, ErrPrincipalNotFound
		}
		return domain.Principal{}, err
	}
	return p, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token
// is not revoked; it stays usable until its own expiry.
func (s *TokenService) Refresh(ctx context.Context, raw string) (domain.Principal, domain.TokenPair, error) {
	p, err := s.VerifyRefresh(ctx, raw)
	if err != nil {
		return domain.Principal{}, domain.TokenPair{}, err
	}
	pair, err := s.Issue(p)
	if err != nil {
		return domain.Principal{}, domain.TokenPair{}, err
	}
	return p, pair, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, jwtx.ErrMissing):
		return ErrTokenMissing
	case errors.Is(err, jwtx.ErrExpired):
		return ErrTokenExpired
	default:
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
}
