package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"social_syncer/internal/domain"
)

// ErrPlatformDisabled is returned for a platform that is not configured.
var ErrPlatformDisabled = errors.New("platform not enabled")

type Syncer interface {
	Sync(ctx context.Context) (*domain.SyncStats, error)
}

type ProfileRefresher interface {
	Refresh(ctx context.Context) (*domain.ProfileSnapshot, error)
}

// Runner serializes work per platform behind a lock and bounds every run
// with a timeout. It is the single entry point of the HTTP triggers, the
// scheduler and the CLI.
type Runner struct {
	syncers  map[domain.Platform]Syncer
	profiles map[domain.Platform]ProfileRefresher
	locker   Locker
	timeout  time.Duration
	logger   *slog.Logger
}

func NewRunner(locker Locker, timeout time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		syncers:  make(map[domain.Platform]Syncer),
		profiles: make(map[domain.Platform]ProfileRefresher),
		locker:   locker,
		timeout:  timeout,
		logger:   logger,
	}
}

func (r *Runner) RegisterSyncer(platform domain.Platform, syncer Syncer) {
	r.syncers[platform] = syncer
}

func (r *Runner) RegisterProfile(platform domain.Platform, refresher ProfileRefresher) {
	r.profiles[platform] = refresher
}

// Platforms lists the platforms with a registered syncer in canonical order.
func (r *Runner) Platforms() []domain.Platform {
	var out []domain.Platform
	for _, p := range domain.Platforms {
		if _, ok := r.syncers[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Sync runs one sync cycle for platform. It fails with
// domain.ErrPersistenceConflict when a cycle for the same platform is in
// flight.
func (r *Runner) Sync(ctx context.Context, platform domain.Platform) (*domain.SyncStats, error) {
	syncer, ok := r.syncers[platform]
	if !ok {
		return nil, fmt.Errorf("%s: %w", platform, ErrPlatformDisabled)
	}

	var stats *domain.SyncStats
	err := r.locked(ctx, "sync:"+string(platform), func(ctx context.Context) error {
		var err error
		stats, err = syncer.Sync(ctx)
		return err
	})
	return stats, err
}

// RefreshProfile refreshes the profile snapshot of platform under the same
// rules as Sync.
func (r *Runner) RefreshProfile(ctx context.Context, platform domain.Platform) (*domain.ProfileSnapshot, error) {
	refresher, ok := r.profiles[platform]
	if !ok {
		return nil, fmt.Errorf("%s profile: %w", platform, ErrPlatformDisabled)
	}

	var snap *domain.ProfileSnapshot
	err := r.locked(ctx, "profile:"+string(platform), func(ctx context.Context) error {
		var err error
		snap, err = refresher.Refresh(ctx)
		return err
	})
	return snap, err
}

func (r *Runner) locked(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	unlock, ok, err := r.locker.TryLock(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		r.logger.Warn("run already in progress", "key", key)
		return fmt.Errorf("%s already running: %w", key, domain.ErrPersistenceConflict)
	}
	defer unlock()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return fn(ctx)
}
