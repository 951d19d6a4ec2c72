package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"social_syncer/internal/config"
	"social_syncer/internal/domain"
)

// SyncService runs fetch, diff, upsert and checkpoint for one platform.
type SyncService struct {
	adapter     Adapter
	posts       PostStore
	media       MediaStore
	checkpoints CheckpointStore
	txManager   TransactionManager
	cache       MediaCache
	publisher   Publisher
	metrics     Metrics
	logger      *slog.Logger
	config      config.SyncConfig
}

// NewSyncService wires a synchronizer. cache, publisher and metrics may be
// nil.
func NewSyncService(
	adapter Adapter,
	posts PostStore,
	media MediaStore,
	checkpoints CheckpointStore,
	txManager TransactionManager,
	cache MediaCache,
	publisher Publisher,
	metrics Metrics,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *SyncService {
	return &SyncService{
		adapter:     adapter,
		posts:       posts,
		media:       media,
		checkpoints: checkpoints,
		txManager:   txManager,
		cache:       cache,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger.With("platform", adapter.Platform()),
		config:      cfg,
	}
}

func (s *SyncService) Platform() domain.Platform {
	return s.adapter.Platform()
}

// Sync runs one cycle. The returned stats are never nil; on error State is
// StateAborted and neither posts nor the checkpoint were written.
func (s *SyncService) Sync(ctx context.Context) (*domain.SyncStats, error) {
	startTime := time.Now()
	platform := s.adapter.Platform()
	stats := &domain.SyncStats{
		RunID:    uuid.NewString(),
		Platform: platform,
		State:    domain.StateFetching,
	}
	logger := s.logger.With("run_id", stats.RunID)
	defer s.record(stats, startTime)

	logger.Info("starting sync", "refresh_metrics", s.config.ShouldRefreshMetrics())

	items, err := s.adapter.FetchItems(ctx)
	if err != nil {
		stats.State = domain.StateAborted
		logger.Error("fetch failed", "error", err)
		return stats, fmt.Errorf("fetch items: %w", err)
	}
	stats.Fetched = len(items)
	logger.Info("fetched items from upstream", "count", len(items))

	stats.State = domain.StateDiffing
	checkpoint, err := s.checkpoints.GetOrCreate(ctx, platform)
	if err != nil {
		stats.State = domain.StateAborted
		return stats, fmt.Errorf("load checkpoint: %w", err)
	}

	stats.LeadingID = s.adapter.LeadingID(items)
	leadingChanged := stats.LeadingID != "" && stats.LeadingID != checkpoint.LastSeenID

	if !leadingChanged && !s.config.ShouldRefreshMetrics() {
		stats.Skipped = len(items)
		stats.State = domain.StateDone
		logger.Info("leading item unchanged, nothing to do", "leading_id", stats.LeadingID)
		return stats, nil
	}

	existing, err := s.posts.GetExisting(ctx, platform, externalIDs(items))
	if err != nil {
		stats.State = domain.StateAborted
		return stats, fmt.Errorf("load existing posts: %w", err)
	}

	logger.Debug("diffed against store",
		"leading_id", stats.LeadingID,
		"last_seen_id", checkpoint.LastSeenID,
		"leading_changed", leadingChanged,
		"known", len(existing),
	)

	stats.State = domain.StateUpserting
	processed := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := processed[item.ExternalID]; dup {
			stats.Skipped++
			continue
		}
		processed[item.ExternalID] = struct{}{}

		postID, seen := existing[item.ExternalID]
		if err := s.syncItem(ctx, logger, stats, item, postID, seen); err != nil {
			stats.Errors++
			logger.Error("persist item failed", "post_id", item.ExternalID, "error", err)
		}
	}

	if leadingChanged {
		if stats.Errors > 0 {
			// A rerun retries the failed items; the checkpoint stays behind.
			logger.Warn("checkpoint not advanced", "errors", stats.Errors)
		} else {
			stats.State = domain.StateAdvancing
			if err := s.checkpoints.Advance(ctx, platform, stats.LeadingID, time.Now().UTC()); err != nil {
				stats.State = domain.StateAborted
				return stats, fmt.Errorf("advance checkpoint: %w", err)
			}
			stats.CheckpointAdvanced = true
		}
	}

	stats.State = domain.StateDone
	stats.Duration = time.Since(startTime)

	logger.Info("sync completed",
		"new", stats.New,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"media_failures", stats.MediaFailures,
		"errors", stats.Errors,
		"published", stats.Published,
		"checkpoint_advanced", stats.CheckpointAdvanced,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *SyncService) syncItem(
	ctx context.Context,
	logger *slog.Logger,
	stats *domain.SyncStats,
	item domain.FeedItem,
	postID int64,
	seen bool,
) error {
	post := s.adapter.ToStoredPost(item)

	if !seen {
		s.localize(ctx, logger, stats, item, &post)
	}

	var inserted bool
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		id, ins, err := s.posts.Upsert(ctx, &post)
		if err != nil {
			return err
		}
		inserted = ins
		postID = id

		if seen && !ins {
			return s.media.RefreshRemote(ctx, id, post.RemoteURLs())
		}
		return s.media.Replace(ctx, id, post.Media)
	})
	if err != nil {
		return err
	}

	post.ID = postID
	if inserted {
		stats.New++
	} else {
		stats.Updated++
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, stats.RunID, &post, inserted); err != nil {
			logger.Warn("publish failed", "post_id", item.ExternalID, "error", err)
		} else {
			stats.Published++
		}
	}
	return nil
}

// localize downloads the media of a new post. A failed asset keeps its
// remote URL and an empty local path; it never fails the item.
func (s *SyncService) localize(ctx context.Context, logger *slog.Logger, stats *domain.SyncStats, item domain.FeedItem, post *domain.StoredPost) {
	if s.cache == nil || !s.config.ShouldLocalizeMedia() || len(post.Media) == 0 {
		return
	}

	targets := s.adapter.MediaTargets(item)
	for i := range post.Media {
		if i >= len(targets) {
			break
		}
		asset, err := s.cache.Localize(ctx, post.Media[i].RemoteURL, targets[i])
		if err != nil {
			stats.MediaFailures++
			if s.metrics != nil {
				s.metrics.RecordMediaFailure(string(s.adapter.Platform()))
			}
			logger.Warn("media download failed",
				"post_id", item.ExternalID,
				"position", i,
				"status", domain.StatusCodeOf(err),
				"error", err,
			)
			continue
		}
		post.Media[i].LocalPath = asset.RelativePath
	}
}

func (s *SyncService) record(stats *domain.SyncStats, startTime time.Time) {
	if stats.Duration == 0 {
		stats.Duration = time.Since(startTime)
	}
	if s.metrics == nil {
		return
	}
	s.metrics.RecordSync(
		string(stats.Platform),
		string(stats.State),
		stats.Duration.Seconds(),
		stats.Fetched, stats.New, stats.Updated, stats.Skipped, stats.Errors,
	)
}

func externalIDs(items []domain.FeedItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ExternalID
	}
	return ids
}
