package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"social_syncer/internal/domain"
)

// MediaStore keeps the ordered attachments of a post.
type MediaStore struct {
	db *sqlx.DB
}

func NewMediaStore(db *sqlx.DB) *MediaStore {
	return &MediaStore{db: db}
}

// Replace drops the media rows of a post and writes the given ones.
func (s *MediaStore) Replace(ctx context.Context, postID int64, media []domain.PostMedia) error {
	exec := GetExecutor(ctx, s.db)

	if _, err := exec.ExecContext(ctx, `DELETE FROM post_media WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("delete media of post %d: %w", postID, err)
	}

	for _, m := range media {
		_, err := exec.ExecContext(ctx,
			`INSERT INTO post_media (post_id, position, remote_url, local_path) VALUES ($1, $2, $3, $4)`,
			postID, m.Position, m.RemoteURL, m.LocalPath,
		)
		if err != nil {
			return fmt.Errorf("insert media %d of post %d: %w", m.Position, postID, err)
		}
	}
	return nil
}

// RefreshRemote updates the remote URLs of a known post. Local paths of
// positions that still exist are kept; positions past the end of urls are
// removed.
func (s *MediaStore) RefreshRemote(ctx context.Context, postID int64, urls []string) error {
	exec := GetExecutor(ctx, s.db)

	for i, u := range urls {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO post_media (post_id, position, remote_url)
			VALUES ($1, $2, $3)
			ON CONFLICT (post_id, position) DO UPDATE SET remote_url = EXCLUDED.remote_url`,
			postID, i, u,
		)
		if err != nil {
			return fmt.Errorf("refresh media %d of post %d: %w", i, postID, err)
		}
	}

	if _, err := exec.ExecContext(ctx,
		`DELETE FROM post_media WHERE post_id = $1 AND position >= $2`, postID, len(urls),
	); err != nil {
		return fmt.Errorf("trim media of post %d: %w", postID, err)
	}
	return nil
}
