package service

import (
	"context"

	"github.com/aussiebroadwan/liftlog/internal/auth/store"
)

// Transactor runs fn inside a database transaction. store.Store satisfies
// it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx store.Tx) error) error
}
