package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/liftlog/internal/auth/domain"
	"github.com/aussiebroadwan/liftlog/internal/auth/store"
	"github.com/aussiebroadwan/liftlog/pkg/cryptox"
	"github.com/aussiebroadwan/liftlog/pkg/idx"
	"github.com/aussiebroadwan/liftlog/pkg/slogx"
)

// Fields read from a signed login payload.
const (
	PayloadFieldID        = "id"
	PayloadFieldFirstName = "first_name"
	PayloadFieldLastName  = "last_name"
	PayloadFieldUsername  = "username"
	PayloadFieldAuthDate  = "auth_date"
)

// SignedPayloadService logs principals in from a payload signed by the
// third-party login widget. Principals are created on first login.
type SignedPayloadService struct {
	Principals store.Principals
	Tokens     *TokenService

	// Tx, when set, runs the principal lookup and first-login insert in one
	// transaction.
	Tx Transactor

	// Secret is cryptox.PayloadSecret of the provider token.
	Secret []byte

	// MaxAge rejects payloads whose auth_date is older than this.
	// Zero disables the check.
	MaxAge time.Duration

	Now func() time.Time
}

// Authenticate verifies fields and returns the principal and a fresh
// token pair.
func (s *SignedPayloadService) Authenticate(ctx context.Context, fields map[string]string) (domain.Principal, domain.TokenPair, error) {
	providerID := strings.TrimSpace(fields[PayloadFieldID])
	if providerID == "" || fields[cryptox.PayloadHashField] == "" {
		return domain.Principal{}, domain.TokenPair{}, ErrMalformedPayload
	}

	if err := cryptox.VerifySignedPayload(fields, s.Secret); err != nil {
		if errors.Is(err, cryptox.ErrPayloadHashMissing) {
			return domain.Principal{}, domain.TokenPair{}, ErrMalformedPayload
		}
		slogx.FromContext(ctx).Info("signed payload rejected", slog.String("provider_id", providerID))
		return domain.Principal{}, domain.TokenPair{}, ErrInvalidSignature
	}

	if err := s.checkFreshness(fields); err != nil {
		return domain.Principal{}, domain.TokenPair{}, err
	}

	p, err := s.findOrCreate(ctx, providerID, fields)
	if err != nil {
		return domain.Principal{}, domain.TokenPair{}, err
	}

	pair, err := s.Tokens.Issue(p)
	if err != nil {
		return domain.Principal{}, domain.TokenPair{}, err
	}
	return p, pair, nil
}

func (s *SignedPayloadService) checkFreshness(fields map[string]string) error {
	if s.MaxAge <= 0 {
		return nil
	}
	secs, err := strconv.ParseInt(fields[PayloadFieldAuthDate], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: auth_date", ErrMalformedPayload)
	}
	if now(s.Now).Sub(time.Unix(secs, 0)) > s.MaxAge {
		return fmt.Errorf("%w: payload too old", ErrInvalidSignature)
	}
	return nil
}

func (s *SignedPayloadService) findOrCreate(ctx context.Context, providerID string, fields map[string]string) (domain.Principal, error) {
	if s.Tx == nil {
		return s.findOrCreateIn(ctx, s.Principals, providerID, fields)
	}

	var p domain.Principal
	err := s.Tx.WithTx(ctx, func(tx store.Tx) error {
		var err error
		p, err = s.findOrCreateIn(ctx, tx.Principals(), providerID, fields)
		return err
	})
	return p, err
}

func (s *SignedPayloadService) findOrCreateIn(ctx context.Context, principals store.Principals, providerID string, fields map[string]string) (domain.Principal, error) {
	identity := SignedPayloadPrefix + providerID

	p, err := principals.GetPrincipalByIdentity(ctx, identity)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Principal{}, err
	}

	t := now(s.Now)
	p = domain.Principal{
		ID:        idx.NewAt(t).String(),
		Identity:  identity,
		Name:      payloadDisplayName(fields),
		CreatedAt: t,
		UpdatedAt: t,
	}
	if err := principals.CreatePrincipal(ctx, p); err != nil {
		// Lost a race with a concurrent first login.
		if errors.Is(err, store.ErrAlreadyExists) {
			return principals.GetPrincipalByIdentity(ctx, identity)
		}
		return domain.Principal{}, err
	}

	slogx.FromContext(ctx).Info("principal provisioned from signed payload", slog.String("principal_id", p.ID))
	return p, nil
}

func payloadDisplayName(fields map[string]string) string {
	name := strings.TrimSpace(strings.TrimSpace(fields[PayloadFieldFirstName]) + " " + strings.TrimSpace(fields[PayloadFieldLastName]))
	if name != "" {
		return name
	}
	if u := strings.TrimSpace(fields[PayloadFieldUsername]); u != "" {
		return u
	}
	return fields[PayloadFieldID]
}
