package service

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"social_syncer/internal/config"
	"social_syncer/internal/domain"
)

// ProfileService refreshes the singleton profile row of one platform.
type ProfileService struct {
	source   ProfileSource
	profiles ProfileStore
	cache    MediaCache
	metrics  Metrics
	logger   *slog.Logger
	config   config.SyncConfig
}

func NewProfileService(
	source ProfileSource,
	profiles ProfileStore,
	cache MediaCache,
	metrics Metrics,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *ProfileService {
	return &ProfileService{
		source:   source,
		profiles: profiles,
		cache:    cache,
		metrics:  metrics,
		logger:   logger.With("platform", source.Platform()),
		config:   cfg,
	}
}

// Refresh fetches the profile, localizes the avatar and overwrites the
// stored snapshot. An avatar that cannot be downloaded keeps its remote URL.
func (s *ProfileService) Refresh(ctx context.Context) (*domain.ProfileSnapshot, error) {
	platform := s.source.Platform()

	snap, err := s.source.FetchProfile(ctx)
	if err != nil {
		s.recordStatus("error")
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	snap.Platform = platform
	snap.FollowerDisplay = domain.FormatCount(snap.FollowerCount)
	snap.FetchedAt = time.Now().UTC()

	if snap.AvatarURL != "" && s.cache != nil && s.config.ShouldLocalizeMedia() {
		asset, err := s.cache.Localize(ctx, snap.AvatarURL, AvatarTarget(platform, snap.Handle))
		if err != nil {
			s.logger.Warn("avatar download failed", "status", domain.StatusCodeOf(err), "error", err)
		} else {
			snap.AvatarPath = asset.RelativePath
		}
	}

	if err := s.profiles.Save(ctx, snap); err != nil {
		s.recordStatus("error")
		return nil, fmt.Errorf("save profile: %w", err)
	}

	s.recordStatus("ok")
	s.logger.Info("profile refreshed", "handle", snap.Handle, "followers", snap.FollowerDisplay)
	return snap, nil
}

func (s *ProfileService) recordStatus(status string) {
	if s.metrics != nil {
		s.metrics.RecordProfile(string(s.source.Platform()), status)
	}
}

// AvatarTarget is the storage target of a profile picture,
// e.g. "profiles/instagram-pannacotech".
func AvatarTarget(platform domain.Platform, handle string) string {
	handle = strings.TrimPrefix(handle, "@")
	handle = strings.ReplaceAll(handle, "/", "_")
	return path.Join("profiles", fmt.Sprintf("%s-%s", platform, handle))
}
