package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/liftlog/internal/auth/store"
)

// HousekeepingService periodically removes expired challenges and pending
// registrations so the transient tables do not grow without bound.
type HousekeepingService struct {
	Store    store.Transient
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to one minute.
func NewHousekeepingService(st store.Transient, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Minute
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup deletes everything that has expired as of now. A failure in one
// table does not stop the other.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	t := now(s.Now)

	challenges, err := s.Store.Challenges().DeleteExpiredChallenges(ctx, t)
	if err != nil {
		s.Logger.Error("failed to delete expired challenges", "error", err)
	}

	registrations, err := s.Store.Registrations().DeleteExpiredRegistrations(ctx, t)
	if err != nil {
		s.Logger.Error("failed to delete expired registrations", "error", err)
	}

	s.Logger.Debug("housekeeping cleanup completed",
		"challenges", challenges,
		"registrations", registrations,
	)
}
