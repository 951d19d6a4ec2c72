package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"social_syncer/internal/domain"
)

// ProfileStore keeps one profile row per platform.
type ProfileStore struct {
	db *sqlx.DB
}

func NewProfileStore(db *sqlx.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Save overwrites the profile row of the snapshot's platform.
func (s *ProfileStore) Save(ctx context.Context, p *domain.ProfileSnapshot) error {
	query := `
		INSERT INTO profiles (
			platform, handle, profile_url, avatar_url, avatar_path, banner_url,
			follower_count, follower_display, fetched_at
		) VALUES (
			:platform, :handle, :profile_url, :avatar_url, :avatar_path, :banner_url,
			:follower_count, :follower_display, :fetched_at
		)
		ON CONFLICT (platform) DO UPDATE SET
			handle = EXCLUDED.handle,
			profile_url = EXCLUDED.profile_url,
			avatar_url = EXCLUDED.avatar_url,
			avatar_path = EXCLUDED.avatar_path,
			banner_url = EXCLUDED.banner_url,
			follower_count = EXCLUDED.follower_count,
			follower_display = EXCLUDED.follower_display,
			fetched_at = EXCLUDED.fetched_at`

	if _, err := sqlx.NamedExecContext(ctx, GetExecutor(ctx, s.db), query, p); err != nil {
		return fmt.Errorf("save profile %s: %w", p.Platform, err)
	}
	return nil
}

// Get returns the profile of platform, or nil when none was saved yet.
func (s *ProfileStore) Get(ctx context.Context, platform domain.Platform) (*domain.ProfileSnapshot, error) {
	var p domain.ProfileSnapshot
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &p, `
		SELECT platform, handle, profile_url, avatar_url, avatar_path, banner_url,
			follower_count, follower_display, fetched_at
		FROM profiles WHERE platform = $1`, platform)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", platform, err)
	}
	return &p, nil
}

func (s *ProfileStore) List(ctx context.Context) ([]domain.ProfileSnapshot, error) {
	var profiles []domain.ProfileSnapshot
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &profiles, `
		SELECT platform, handle, profile_url, avatar_url, avatar_path, banner_url,
			follower_count, follower_display, fetched_at
		FROM profiles ORDER BY platform`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}
