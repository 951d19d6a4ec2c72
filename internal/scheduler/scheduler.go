package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"social_syncer/internal/domain"
)

// Runner defines the operations the scheduler drives for every platform.
type Runner interface {
	Platforms() []domain.Platform
	Sync(ctx context.Context, platform domain.Platform) (*domain.SyncStats, error)
	RefreshProfile(ctx context.Context, platform domain.Platform) (*domain.ProfileSnapshot, error)
}

type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "platforms", s.runner.Platforms())

	s.runAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

// runAll syncs the platforms one after another. A failing platform does
// not stop the others.
func (s *Scheduler) runAll(ctx context.Context) {
	for _, platform := range s.runner.Platforms() {
		if ctx.Err() != nil {
			return
		}

		if _, err := s.runner.Sync(ctx, platform); err != nil {
			s.logError("sync failed", platform, err)
		}
		if _, err := s.runner.RefreshProfile(ctx, platform); err != nil {
			s.logError("profile refresh failed", platform, err)
		}
	}
}

func (s *Scheduler) logError(msg string, platform domain.Platform, err error) {
	if errors.Is(err, domain.ErrPersistenceConflict) {
		s.logger.Info("skipped, run in progress", "platform", platform)
		return
	}
	s.logger.Error(msg, "platform", platform, "error", err, "status", domain.StatusCodeOf(err))
}
