package domain

import "time"

// FeedItem is the normalized form of one upstream post, built per sync cycle.
type FeedItem struct {
	ExternalID   string
	Platform     Platform
	PublishedAt  time.Time
	Title        string
	Caption      string
	Count        int64 // views for YouTube, likes elsewhere
	MediaURLs    []string
	IsVideo      bool
	IsSingle     bool
	ThumbnailURL string
	Permalink    string
	ChannelName  string
	SourceURL    string
	Pinned       bool
}

// StoredPost is the persisted row for one post, video or tweet.
type StoredPost struct {
	ID           int64       `db:"id" json:"id"`
	Platform     Platform    `db:"platform" json:"platform"`
	ExternalID   string      `db:"external_id" json:"external_id"`
	PublishedAt  time.Time   `db:"published_at" json:"published_at"`
	Title        string      `db:"title" json:"title"`
	Caption      string      `db:"caption" json:"caption"`
	Count        int64       `db:"count" json:"count"`
	CountDisplay string      `db:"count_display" json:"count_display"`
	ThumbnailURL string      `db:"thumbnail_url" json:"thumbnail_url"`
	IsVideo      bool        `db:"is_video" json:"is_video"`
	IsSingle     bool        `db:"is_single" json:"is_single"`
	Permalink    string      `db:"permalink" json:"permalink"`
	ChannelName  string      `db:"channel_name" json:"channel_name"`
	SourceURL    string      `db:"source_url" json:"source_url"`
	Media        []PostMedia `db:"-" json:"media"`
	StoredAt     time.Time   `db:"stored_at" json:"stored_at"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// PostMedia is one ordered media attachment of a post. LocalPath is empty
// when the asset could not be localized.
type PostMedia struct {
	PostID    int64  `db:"post_id" json:"-"`
	Position  int    `db:"position" json:"position"`
	RemoteURL string `db:"remote_url" json:"remote_url"`
	LocalPath string `db:"local_path" json:"local_path,omitempty"`
}

// RemoteURLs returns the upstream URLs in position order.
func (p *StoredPost) RemoteURLs() []string {
	urls := make([]string, len(p.Media))
	for i, m := range p.Media {
		urls[i] = m.RemoteURL
	}
	return urls
}

// NewStoredPost maps the fields every platform shares. Adapters adjust the
// platform-specific ones afterwards.
func NewStoredPost(item FeedItem) StoredPost {
	post := StoredPost{
		Platform:     item.Platform,
		ExternalID:   item.ExternalID,
		PublishedAt:  item.PublishedAt,
		Title:        item.Title,
		Caption:      item.Caption,
		Count:        item.Count,
		CountDisplay: FormatCount(item.Count),
		ThumbnailURL: item.ThumbnailURL,
		IsVideo:      item.IsVideo,
		IsSingle:     item.IsSingle,
		Permalink:    item.Permalink,
		ChannelName:  item.ChannelName,
		SourceURL:    item.SourceURL,
	}
	for i, u := range item.MediaURLs {
		post.Media = append(post.Media, PostMedia{Position: i, RemoteURL: u})
	}
	return post
}

// LocalMediaAsset is a file written by the media cache, addressed by its
// path relative to the media root.
type LocalMediaAsset struct {
	RelativePath string
	ContentType  string
	Size         int64
}

// PostFilter selects one page of posts, newest first. An empty Platform
// matches every platform.
type PostFilter struct {
	Platform Platform
	Page     int
	PageSize int
}

// Offset is the number of rows before the page. Pages start at 1.
func (f PostFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
