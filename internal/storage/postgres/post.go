package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"social_syncer/internal/domain"
)

type PostStore struct {
	db *sqlx.DB
}

func NewPostStore(db *sqlx.DB) *PostStore {
	return &PostStore{db: db}
}

// Upsert inserts the post or updates the row with the same platform and
// external ID in one statement. inserted is true when a new row was created.
// StoredAt is only set on insert.
func (s *PostStore) Upsert(ctx context.Context, post *domain.StoredPost) (int64, bool, error) {
	query := `
		INSERT INTO posts (
			platform, external_id, published_at, title, caption, count, count_display,
			thumbnail_url, is_video, is_single, permalink, channel_name, source_url
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		ON CONFLICT (platform, external_id) DO UPDATE SET
			published_at = EXCLUDED.published_at,
			title = EXCLUDED.title,
			caption = EXCLUDED.caption,
			count = EXCLUDED.count,
			count_display = EXCLUDED.count_display,
			thumbnail_url = EXCLUDED.thumbnail_url,
			is_video = EXCLUDED.is_video,
			is_single = EXCLUDED.is_single,
			permalink = EXCLUDED.permalink,
			channel_name = EXCLUDED.channel_name,
			source_url = EXCLUDED.source_url,
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS inserted`

	var (
		id       int64
		inserted bool
	)
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		post.Platform,
		post.ExternalID,
		post.PublishedAt,
		post.Title,
		post.Caption,
		post.Count,
		post.CountDisplay,
		post.ThumbnailURL,
		post.IsVideo,
		post.IsSingle,
		post.Permalink,
		post.ChannelName,
		post.SourceURL,
	).Scan(&id, &inserted)
	if err != nil {
		return 0, false, fmt.Errorf("upsert post %s/%s: %w", post.Platform, post.ExternalID, err)
	}

	post.ID = id
	return id, inserted, nil
}

// GetExisting maps the external IDs already stored for platform to their
// row IDs.
func (s *PostStore) GetExisting(ctx context.Context, platform domain.Platform, ids []string) (map[string]int64, error) {
	result := make(map[string]int64)
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT external_id, id FROM posts WHERE platform = $1 AND external_id = ANY($2)`

	rows, err := GetExecutor(ctx, s.db).QueryxContext(ctx, query, platform, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query existing posts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			extID string
			id    int64
		)
		if err := rows.Scan(&extID, &id); err != nil {
			return nil, err
		}
		result[extID] = id
	}

	return result, rows.Err()
}

// List returns one page of posts with their media and the total number of
// posts matching the filter.
func (s *PostStore) List(ctx context.Context, filter domain.PostFilter) ([]domain.StoredPost, int, error) {
	exec := GetExecutor(ctx, s.db)

	var total int
	if err := sqlx.GetContext(ctx, exec, &total,
		`SELECT COUNT(*) FROM posts WHERE ($1 = '' OR platform = $1)`, filter.Platform,
	); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	query := `
		SELECT id, platform, external_id, published_at, title, caption, count, count_display,
			thumbnail_url, is_video, is_single, permalink, channel_name, source_url,
			stored_at, created_at, updated_at
		FROM posts
		WHERE ($1 = '' OR platform = $1)
		ORDER BY published_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	var posts []domain.StoredPost
	if err := sqlx.SelectContext(ctx, exec, &posts, query, filter.Platform, filter.PageSize, filter.Offset()); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	if len(posts) == 0 {
		return posts, total, nil
	}

	ids := make([]int64, len(posts))
	byID := make(map[int64]*domain.StoredPost, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		byID[posts[i].ID] = &posts[i]
	}

	var media []domain.PostMedia
	if err := sqlx.SelectContext(ctx, exec, &media,
		`SELECT post_id, position, remote_url, local_path FROM post_media WHERE post_id = ANY($1) ORDER BY post_id, position`,
		pq.Array(ids),
	); err != nil {
		return nil, 0, fmt.Errorf("list post media: %w", err)
	}
	for _, m := range media {
		if p, ok := byID[m.PostID]; ok {
			p.Media = append(p.Media, m)
		}
	}

	return posts, total, nil
}
