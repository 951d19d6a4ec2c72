package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"social_syncer/internal/domain"
)

// Adapter is the per-platform capability set the synchronizer drives.
type Adapter interface {
	Platform() domain.Platform
	FetchItems(ctx context.Context) ([]domain.FeedItem, error)
	// LeadingID picks the item that marks the newest state of the feed.
	LeadingID(items []domain.FeedItem) string
	// MediaTargets returns one storage target per media URL of item.
	MediaTargets(item domain.FeedItem) []string
	ToStoredPost(item domain.FeedItem) domain.StoredPost
}

type ProfileSource interface {
	Platform() domain.Platform
	FetchProfile(ctx context.Context) (*domain.ProfileSnapshot, error)
}

type PostStore interface {
	Upsert(ctx context.Context, post *domain.StoredPost) (int64, bool, error)
	GetExisting(ctx context.Context, platform domain.Platform, ids []string) (map[string]int64, error)
}

type MediaStore interface {
	Replace(ctx context.Context, postID int64, media []domain.PostMedia) error
	RefreshRemote(ctx context.Context, postID int64, urls []string) error
}

type CheckpointStore interface {
	GetOrCreate(ctx context.Context, platform domain.Platform) (*domain.Checkpoint, error)
	Advance(ctx context.Context, platform domain.Platform, newID string, at time.Time) error
}

type ProfileStore interface {
	Save(ctx context.Context, profile *domain.ProfileSnapshot) error
}

type MediaCache interface {
	Localize(ctx context.Context, remoteURL, target string) (domain.LocalMediaAsset, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, runID string, post *domain.StoredPost, isNew bool) error
	Close() error
}

type Locker interface {
	TryLock(ctx context.Context, key string) (func(), bool, error)
}

type Metrics interface {
	RecordSync(platform, state string, seconds float64, fetched, created, updated, skipped, failed int)
	RecordMediaFailure(platform string)
	RecordProfile(platform, status string)
}
