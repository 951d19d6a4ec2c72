package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"time"

	"social_syncer/internal/domain"
	"social_syncer/internal/source"
)

const timestampLayout = "2006-01-02T15:04:05-0700"

const (
	profileFields = "username,name,profile_picture_url,followers_count,media_count"
	mediaFields   = "id,caption,like_count,comments_count,timestamp,media_product_type,media_type,permalink,media_url,thumbnail_url,children{media_url}"
)

// Config holds Instagram source configuration.
type Config struct {
	UserID      string
	Username    string
	AccessToken string
	GraphURL    string
}

// Source reads a business account through the Graph API business
// discovery edge.
type Source struct {
	client *source.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a new Instagram source.
func New(cfg Config, client *source.Client, logger *slog.Logger) *Source {
	return &Source{
		client: client,
		cfg:    cfg,
		logger: logger.With("platform", domain.PlatformInstagram),
	}
}

func (s *Source) Platform() domain.Platform {
	return domain.PlatformInstagram
}

func (s *Source) discover(ctx context.Context, fields string) (*business, error) {
	q := url.Values{}
	q.Set("fields", fmt.Sprintf("business_discovery.username(%s){%s}", s.cfg.Username, fields))
	q.Set("access_token", s.cfg.AccessToken)

	endpoint := fmt.Sprintf("%s/%s?%s", s.cfg.GraphURL, url.PathEscape(s.cfg.UserID), q.Encode())

	var resp discoveryResponse
	if err := s.client.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.BusinessDiscovery == nil {
		return nil, fmt.Errorf("business_discovery missing: %w", domain.ErrMalformedResponse)
	}
	return resp.BusinessDiscovery, nil
}

// FetchItems returns the account's recent media, newest first.
func (s *Source) FetchItems(ctx context.Context) ([]domain.FeedItem, error) {
	biz, err := s.discover(ctx, profileFields+",media{"+mediaFields+"}")
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	if biz.Media == nil {
		return nil, nil
	}

	items := make([]domain.FeedItem, 0, len(biz.Media.Data))
	for _, m := range biz.Media.Data {
		item, ok := s.transform(m)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func (s *Source) transform(m media) (domain.FeedItem, bool) {
	if m.ID == "" || m.MediaURL == "" {
		// Copyrighted audio and some reels come back without media_url.
		s.logger.Debug("skipping media without url", "post_id", m.ID)
		return domain.FeedItem{}, false
	}

	item := domain.FeedItem{
		ExternalID:   m.ID,
		Platform:     domain.PlatformInstagram,
		Permalink:    m.Permalink,
		ThumbnailURL: m.ThumbnailURL,
		ChannelName:  s.cfg.Username,
	}

	if m.Caption != nil {
		item.Caption = *m.Caption
	}
	if m.LikeCount != nil {
		item.Count = *m.LikeCount
	}

	if m.Timestamp != "" {
		ts, err := time.Parse(timestampLayout, m.Timestamp)
		if err != nil {
			s.logger.Warn("failed to parse timestamp", "post_id", m.ID, "timestamp", m.Timestamp)
		} else {
			item.PublishedAt = ts
		}
	}

	switch {
	case m.MediaType == typeVideo:
		item.IsVideo = true
		item.IsSingle = true
		item.MediaURLs = []string{m.MediaURL}
	case m.MediaType == typeCarousel && m.Children != nil:
		for _, child := range m.Children.Data {
			if child.MediaURL != "" {
				item.MediaURLs = append(item.MediaURLs, child.MediaURL)
			}
		}
	case m.MediaType == typeImage:
		item.IsSingle = true
		item.MediaURLs = []string{m.MediaURL}
	default:
		s.logger.Debug("unhandled media type",
			"post_id", m.ID,
			"media_type", m.MediaType,
			"product_type", m.MediaProductType,
		)
	}

	if item.ThumbnailURL == "" && !item.IsVideo && len(item.MediaURLs) > 0 {
		item.ThumbnailURL = item.MediaURLs[0]
	}

	return item, true
}

// LeadingID is the first entry: business discovery lists newest first.
func (s *Source) LeadingID(items []domain.FeedItem) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].ExternalID
}

func (s *Source) MediaTargets(item domain.FeedItem) []string {
	if item.IsVideo && len(item.MediaURLs) == 1 {
		return []string{path.Join("instagram", "videos", item.ExternalID)}
	}
	targets := make([]string, len(item.MediaURLs))
	for i := range item.MediaURLs {
		targets[i] = path.Join("instagram", "media", item.ExternalID, fmt.Sprintf("%s-%d", item.ExternalID, i))
	}
	return targets
}

func (s *Source) ToStoredPost(item domain.FeedItem) domain.StoredPost {
	return domain.NewStoredPost(item)
}

// FetchProfile reads follower count and avatar for the account.
func (s *Source) FetchProfile(ctx context.Context) (*domain.ProfileSnapshot, error) {
	biz, err := s.discover(ctx, profileFields)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	handle := biz.Username
	if handle == "" {
		handle = s.cfg.Username
	}

	return &domain.ProfileSnapshot{
		Platform:      domain.PlatformInstagram,
		Handle:        handle,
		ProfileURL:    "https://www.instagram.com/" + handle + "/",
		AvatarURL:     biz.ProfilePictureURL,
		FollowerCount: biz.FollowersCount,
	}, nil
}
