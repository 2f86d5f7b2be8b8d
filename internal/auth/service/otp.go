package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/liftlog/internal/auth/domain"
	"github.com/aussiebroadwan/liftlog/internal/auth/store"
	"github.com/aussiebroadwan/liftlog/pkg/cryptox"
	"github.com/aussiebroadwan/liftlog/pkg/idx"
	"github.com/aussiebroadwan/liftlog/pkg/slogx"
)

// DefaultRegistrationTTL bounds the gap between verifying a code and
// supplying a name.
const DefaultRegistrationTTL = 15 * time.Minute

// VerifyResult is the outcome of a successful code verification. Exactly
// one of NeedsName or a populated Tokens is set.
type VerifyResult struct {
	Principal domain.Principal
	Tokens    domain.TokenPair
	NeedsName bool
}

// OTPService drives passwordless login: send a code, verify it, and for a
// new identity collect a name before the principal is created.
type OTPService struct {
	Principals    store.Principals
	Registrations store.Registrations
	Challenges    *ChallengeService
	Tokens        *TokenService
	Deliverer     Deliverer

	// Tx, when set, creates the principal and consumes its pending
	// registration in one transaction. Set TxRegistrations when
	// Registrations lives in the same database, so the registration is read
	// and deleted through the transaction too.
	Tx              Transactor
	TxRegistrations bool

	RegistrationTTL time.Duration
	Now             func() time.Time

	// GenerateCode defaults to cryptox.GenerateOTP.
	GenerateCode func() (string, error)
}

// SendCode issues a fresh code for identity and hands it to the Deliverer.
// It reports whether no principal exists for the identity yet.
func (s *OTPService) SendCode(ctx context.Context, identity string) (bool, error) {
	identity, err := NormalizeIdentity(identity)
	if err != nil {
		return false, err
	}

	isNew, err := s.isNewIdentity(ctx, identity)
	if err != nil {
		return false, err
	}

	gen := s.GenerateCode
	if gen == nil {
		gen = cryptox.GenerateOTP
	}
	code, err := gen()
	if err != nil {
		return false, err
	}

	if err := s.Challenges.Issue(ctx, identity, code); err != nil {
		return false, err
	}
	if err := s.Deliverer.Deliver(ctx, identity, code); err != nil {
		return false, err
	}

	slogx.FromContext(ctx).Debug("otp sent", slog.Bool("new_user", isNew))
	return isNew, nil
}

// VerifyCode consumes the challenge for identity. Known principals get a
// token pair; unknown ones get a pending registration and NeedsName.
func (s *OTPService) VerifyCode(ctx context.Context, identity, code string) (VerifyResult, error) {
	identity, err := NormalizeIdentity(identity)
	if err != nil {
		return VerifyResult{}, err
	}
	if err := s.Challenges.Verify(ctx, identity, strings.TrimSpace(code)); err != nil {
		return VerifyResult{}, err
	}

	p, err := s.Principals.GetPrincipalByIdentity(ctx, identity)
	switch {
	case err == nil:
		pair, err := s.Tokens.Issue(p)
		if err != nil {
			return VerifyResult{}, err
		}
		return VerifyResult{Principal: p, Tokens: pair}, nil

	case errors.Is(err, store.ErrNotFound):
		t := now(s.Now)
		if err := s.Registrations.PutRegistration(ctx, domain.Registration{
			Identity:  identity,
			ExpiresAt: t.Add(s.registrationTTL()),
			CreatedAt: t,
		}); err != nil {
			return VerifyResult{}, err
		}
		return VerifyResult{NeedsName: true}, nil

	default:
		return VerifyResult{}, err
	}
}

// CompleteRegistration creates the principal for an identity that has
// just verified a code, and issues its first token pair.
func (s *OTPService) CompleteRegistration(ctx context.Context, identity, name string) (domain.Principal, domain.TokenPair, error) {
	identity, err := NormalizeIdentity(identity)
	if err != nil {
		return domain.Principal{}, domain.TokenPair{}, err
	}
	name, err = NormalizeName(name)
	if err != nil {
		return domain.Principal{}, domain.TokenPair{}, err
	}

	isNew, err := s.isNewIdentity(ctx, identity)
	if err != nil {
		return domain.Principal{}, domain.TokenPair{}, err
	}
	if !isNew {
		return domain.Principal{}, domain.TokenPair{}, ErrAlreadyRegistered
	}

	t := now(s.Now)
	p := domain.Principal{
		ID:        idx.NewAt(t).String(),
		Identity:  identity,
		Name:      name,
		CreatedAt: t,
		UpdatedAt: t,
	}

	err = s.inTx(ctx, func(principals store.Principals, regs store.Registrations) error {
		return register(ctx, principals, regs, p)
	})
	if errors.Is(err, errRegistrationExpired) {
		if err := s.Registrations.DeleteRegistration(ctx, identity); err != nil {
			slogx.FromContext(ctx).Warn("failed to delete expired registration", slog.Any("error", err))
		}
		return domain.Principal{}, domain.TokenPair{}, ErrRegistrationNotFound
	}
	if err != nil {
		return domain.Principal{}, domain.TokenPair{}, err
	}

	pair, err := s.Tokens.Issue(p)
	if err != nil {
		return domain.Principal{}, domain.TokenPair{}, err
	}

	slogx.FromContext(ctx).Info("principal registered", slog.String("principal_id", p.ID))
	return p, pair, nil
}

var errRegistrationExpired = errors.New("registration expired")

// register consumes the pending registration for p and creates p.
func register(ctx context.Context, principals store.Principals, regs store.Registrations, p domain.Principal) error {
	reg, err := regs.GetRegistration(ctx, p.Identity)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRegistrationNotFound
		}
		return err
	}
	if reg.Expired(p.CreatedAt) {
		return errRegistrationExpired
	}

	if err := principals.CreatePrincipal(ctx, p); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrAlreadyRegistered
		}
		return err
	}
	return regs.DeleteRegistration(ctx, p.Identity)
}

func (s *OTPService) inTx(ctx context.Context, fn func(store.Principals, store.Registrations) error) error {
	if s.Tx == nil {
		return fn(s.Principals, s.Registrations)
	}
	return s.Tx.WithTx(ctx, func(tx store.Tx) error {
		regs := s.Registrations
		if s.TxRegistrations {
			regs = tx.Registrations()
		}
		return fn(tx.Principals(), regs)
	})
}

func (s *OTPService) isNewIdentity(ctx context.Context, identity string) (bool, error) {
	_, err := s.Principals.GetPrincipalByIdentity(ctx, identity)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, store.ErrNotFound):
		return true, nil
	default:
		return false, err
	}
}

func (s *OTPService) registrationTTL() time.Duration {
	if s.RegistrationTTL > 0 {
		return s.RegistrationTTL
	}
	return DefaultRegistrationTTL
}
