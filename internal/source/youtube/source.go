package youtube

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"social_syncer/internal/domain"
	"social_syncer/internal/source"
)

// Config holds YouTube source configuration.
type Config struct {
	ChannelID   string
	ChannelName string
	Handle      string
	APIKey      string
	FeedURL     string
	APIBaseURL  string
}

// Source reads a channel's public Atom feed and, for the profile, the
// Data API channels endpoint.
type Source struct {
	client *source.Client
	parser *gofeed.Parser
	cfg    Config
	logger *slog.Logger
}

// New creates a new YouTube source.
func New(cfg Config, client *source.Client, logger *slog.Logger) *Source {
	return &Source{
		client: client,
		parser: gofeed.NewParser(),
		cfg:    cfg,
		logger: logger.With("platform", domain.PlatformYouTube),
	}
}

func (s *Source) Platform() domain.Platform {
	return domain.PlatformYouTube
}

func (s *Source) feedURL() string {
	return s.cfg.FeedURL + "?channel_id=" + url.QueryEscape(s.cfg.ChannelID)
}

// FetchItems returns the channel's videos in feed order, newest first.
func (s *Source) FetchItems(ctx context.Context) ([]domain.FeedItem, error) {
	feedURL := s.feedURL()

	body, err := s.client.Get(ctx, feedURL, "application/atom+xml, application/xml")
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	feed, err := s.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w: %v", domain.ErrMalformedResponse, err)
	}

	items := make([]domain.FeedItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item, ok := s.transform(entry, feedURL)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	s.logger.Debug("parsed feed", "entries", len(feed.Items), "items", len(items))

	return items, nil
}

func (s *Source) transform(entry *gofeed.Item, feedURL string) (domain.FeedItem, bool) {
	videoID := extValue(entry.Extensions, "yt", "videoId")
	if videoID == "" {
		videoID = strings.TrimPrefix(entry.GUID, "yt:video:")
	}
	if videoID == "" {
		s.logger.Warn("feed entry without video id", "title", entry.Title)
		return domain.FeedItem{}, false
	}

	var publishedAt time.Time
	if entry.PublishedParsed != nil {
		publishedAt = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		publishedAt = *entry.UpdatedParsed
	}

	item := domain.FeedItem{
		ExternalID:  videoID,
		Platform:    domain.PlatformYouTube,
		PublishedAt: publishedAt,
		Title:       entry.Title,
		IsVideo:     true,
		IsSingle:    true,
		Permalink:   "https://www.youtube.com/watch?v=" + videoID,
		ChannelName: s.cfg.ChannelName,
		SourceURL:   feedURL,
	}
	if entry.Link != "" {
		item.Permalink = entry.Link
	}

	if group, ok := firstExt(entry.Extensions, "media", "group"); ok {
		if thumb, ok := firstChild(group, "thumbnail"); ok {
			item.ThumbnailURL = thumb.Attrs["url"]
		}
		if desc, ok := firstChild(group, "description"); ok {
			item.Caption = desc.Value
		}
		if community, ok := firstChild(group, "community"); ok {
			if stats, ok := firstChild(community, "statistics"); ok {
				views, err := domain.ParseCount(stats.Attrs["views"])
				if err != nil {
					s.logger.Warn("unparsable view count", "video_id", videoID, "error", err)
				}
				item.Count = views
			}
		}
	}

	if item.ThumbnailURL != "" {
		item.MediaURLs = []string{item.ThumbnailURL}
	}

	return item, true
}

// LeadingID is the first entry: the feed lists newest first.
func (s *Source) LeadingID(items []domain.FeedItem) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].ExternalID
}

func (s *Source) MediaTargets(item domain.FeedItem) []string {
	targets := make([]string, len(item.MediaURLs))
	for i := range item.MediaURLs {
		targets[i] = path.Join("youtube", "thumbnails", item.ExternalID)
		if i > 0 {
			targets[i] = fmt.Sprintf("%s-%d", targets[i], i)
		}
	}
	return targets
}

func (s *Source) ToStoredPost(item domain.FeedItem) domain.StoredPost {
	post := domain.NewStoredPost(item)
	if post.ChannelName == "" {
		post.ChannelName = s.cfg.ChannelName
	}
	return post
}

// FetchProfile reads banner, avatar and subscriber count from the Data API.
func (s *Source) FetchProfile(ctx context.Context) (*domain.ProfileSnapshot, error) {
	if s.cfg.APIKey == "" {
		return nil, fmt.Errorf("youtube api key not configured")
	}

	q := url.Values{}
	q.Set("part", "brandingSettings,statistics,snippet")
	q.Set("id", s.cfg.ChannelID)
	q.Set("key", s.cfg.APIKey)

	var resp channelsResponse
	if err := s.client.GetJSON(ctx, s.cfg.APIBaseURL+"/channels?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetch channel: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("channel %s not found: %w", s.cfg.ChannelID, domain.ErrMalformedResponse)
	}

	ch := resp.Items[0]

	subscribers, err := domain.ParseCount(ch.Statistics.SubscriberCount)
	if err != nil {
		s.logger.Warn("unparsable subscriber count", "value", ch.Statistics.SubscriberCount)
	}

	handle := s.cfg.Handle
	if handle == "" {
		handle = strings.TrimPrefix(ch.Snippet.CustomURL, "@")
	}
	if handle == "" {
		handle = ch.Snippet.Title
	}

	profile := &domain.ProfileSnapshot{
		Platform:      domain.PlatformYouTube,
		Handle:        handle,
		BannerURL:     ch.BrandingSettings.Image.BannerExternalURL,
		FollowerCount: subscribers,
	}
	if ch.Snippet.CustomURL != "" {
		profile.ProfileURL = "https://www.youtube.com/" + ch.Snippet.CustomURL
	} else {
		profile.ProfileURL = "https://www.youtube.com/channel/" + s.cfg.ChannelID
	}
	for _, size := range []string{"high", "medium", "default"} {
		if t, ok := ch.Snippet.Thumbnails[size]; ok && t.URL != "" {
			profile.AvatarURL = t.URL
			break
		}
	}

	return profile, nil
}

func extValue(exts ext.Extensions, ns, name string) string {
	if e, ok := firstExt(exts, ns, name); ok {
		return strings.TrimSpace(e.Value)
	}
	return ""
}

func firstExt(exts ext.Extensions, ns, name string) (ext.Extension, bool) {
	group, ok := exts[ns]
	if !ok {
		return ext.Extension{}, false
	}
	list := group[name]
	if len(list) == 0 {
		return ext.Extension{}, false
	}
	return list[0], true
}

func firstChild(e ext.Extension, name string) (ext.Extension, bool) {
	list := e.Children[name]
	if len(list) == 0 {
		return ext.Extension{}, false
	}
	return list[0], true
}
