package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/liftlog/pkg/slogx"
)

// Deliverer sends a one-time code to the owner of identity.
type Deliverer interface {
	Deliver(ctx context.Context, identity, code string) error
}

// LogDeliverer writes codes to the request logger. It stands in for a real
// mail or SMS gateway in development and tests.
type LogDeliverer struct{}

func (LogDeliverer) Deliver(ctx context.Context, identity, code string) error {
	slogx.FromContext(ctx).Info("otp issued",
		slog.String("identity", identity),
		slog.String("code", code),
	)
	return nil
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, identity, code string) error

func (f DelivererFunc) Deliver(ctx context.Context, identity, code string) error {
	return f(ctx, identity, code)
}
