package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/liftlog/internal/auth/domain"
	"github.com/aussiebroadwan/liftlog/internal/auth/store"
	"github.com/aussiebroadwan/liftlog/internal/auth/store/drivers/memory"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestChallenges(t *testing.T) {
	ctx := context.Background()
	repo := memory.New().Challenges()

	_, err := repo.GetChallenge(ctx, "ann@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, repo.PutChallenge(ctx, domain.Challenge{Identity: "ann@example.com", CodeHash: "h1", ExpiresAt: t0.Add(5 * time.Minute)}))
	require.NoError(t, repo.PutChallenge(ctx, domain.Challenge{Identity: "ann@example.com", CodeHash: "h2", ExpiresAt: t0.Add(5 * time.Minute)}))

	got, err := repo.GetChallenge(ctx, "ann@example.com")
	require.NoError(t, err)
	require.Equal(t, "h2", got.CodeHash)

	require.NoError(t, repo.PutChallenge(ctx, domain.Challenge{Identity: "old@example.com", CodeHash: "h", ExpiresAt: t0}))
	n, err := repo.DeleteExpiredChallenges(ctx, t0)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	require.NoError(t, repo.DeleteChallenge(ctx, "ann@example.com"))
	require.NoError(t, repo.DeleteChallenge(ctx, "ann@example.com"))
	_, err = repo.GetChallenge(ctx, "ann@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegistrations(t *testing.T) {
	ctx := context.Background()
	repo := memory.New().Registrations()

	require.NoError(t, repo.PutRegistration(ctx, domain.Registration{Identity: "new@example.com", ExpiresAt: t0.Add(time.Minute)}))
	got, err := repo.GetRegistration(ctx, "new@example.com")
	require.NoError(t, err)
	require.Equal(t, "new@example.com", got.Identity)

	n, err := repo.DeleteExpiredRegistrations(ctx, t0)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = repo.DeleteExpiredRegistrations(ctx, t0.Add(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = repo.GetRegistration(ctx, "new@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestStores_AreIsolated(t *testing.T) {
	ctx := context.Background()
	a, b := memory.New(), memory.New()

	require.NoError(t, a.Challenges().PutChallenge(ctx, domain.Challenge{Identity: "ann@example.com", CodeHash: "h"}))
	_, err := b.Challenges().GetChallenge(ctx, "ann@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestChallenges_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	repo := memory.New().Challenges()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.PutChallenge(ctx, domain.Challenge{Identity: "ann@example.com", CodeHash: string(rune('a' + i%26)), ExpiresAt: t0.Add(time.Hour)})
			_, _ = repo.GetChallenge(ctx, "ann@example.com")
			_, _ = repo.DeleteExpiredChallenges(ctx, t0)
		}()
	}
	wg.Wait()

	_, err := repo.GetChallenge(ctx, "ann@example.com")
	require.NoError(t, err)
}
