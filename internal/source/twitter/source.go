package twitter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"social_syncer/internal/domain"
	"social_syncer/internal/source"
)

// Config holds Twitter mirror scraper configuration.
type Config struct {
	Username    string
	InstanceURL string
	MaxItems    int
	MaxPages    int
	PageDelay   time.Duration
}

// Source scrapes a user timeline from a Nitter instance. Pages are paced
// by a limiter so a sync never hammers the mirror.
type Source struct {
	client  *source.Client
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a new Twitter source.
func New(cfg Config, client *source.Client, logger *slog.Logger) *Source {
	return &Source{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.PageDelay), 1),
		logger:  logger.With("platform", domain.PlatformTwitter),
	}
}

func (s *Source) Platform() domain.Platform {
	return domain.PlatformTwitter
}

func (s *Source) timelineURL(cursor string) string {
	base := strings.TrimRight(s.cfg.InstanceURL, "/") + "/" + url.PathEscape(s.cfg.Username)
	return base + cursor
}

func (s *Source) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	body, err := s.client.Get(ctx, pageURL, "text/html")
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w: %v", domain.ErrMalformedResponse, err)
	}
	return doc, nil
}

// FetchItems walks the timeline up to MaxPages pages and returns at most
// MaxItems original tweets in timeline order. Retweets and quote tweets
// are dropped.
func (s *Source) FetchItems(ctx context.Context) ([]domain.FeedItem, error) {
	var items []domain.FeedItem
	seen := make(map[string]struct{})
	cursor := ""

	for page := 0; page < s.cfg.MaxPages; page++ {
		doc, err := s.fetchDocument(ctx, s.timelineURL(cursor))
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}

		if page == 0 && doc.Find(".timeline").Length() == 0 {
			return nil, fmt.Errorf("timeline not found: %w", domain.ErrMalformedResponse)
		}

		tweets := parseTimeline(doc, s.cfg.InstanceURL)
		for _, t := range tweets {
			if t.Retweet || t.Quoted {
				continue
			}
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}

			items = append(items, s.transform(t))
			if len(items) >= s.cfg.MaxItems {
				return items, nil
			}
		}

		s.logger.Debug("fetched page", "page", page, "tweets", len(tweets), "total", len(items))

		cursor = nextCursor(doc)
		if cursor == "" || len(tweets) == 0 {
			break
		}
	}

	return items, nil
}

func (s *Source) transform(t tweet) domain.FeedItem {
	if !t.HasDate {
		s.logger.Warn("tweet without parsable date", "post_id", t.ID)
	}

	item := domain.FeedItem{
		ExternalID:  t.ID,
		Platform:    domain.PlatformTwitter,
		PublishedAt: t.Date,
		Caption:     t.Text,
		Count:       t.Likes,
		Permalink:   t.Link,
		ChannelName: s.cfg.Username,
		Pinned:      t.Pinned,
	}

	switch {
	case len(t.Videos) > 0:
		item.IsVideo = true
		item.MediaURLs = t.Videos[:1]
	case len(t.Pictures) > 0:
		item.MediaURLs = t.Pictures
		item.ThumbnailURL = t.Pictures[0]
	}
	item.IsSingle = len(item.MediaURLs) == 1

	return item
}

// LeadingID is the first tweet that is not pinned; a pinned tweet sits on
// top of the timeline regardless of age.
func (s *Source) LeadingID(items []domain.FeedItem) string {
	for _, item := range items {
		if !item.Pinned {
			return item.ExternalID
		}
	}
	return ""
}

func (s *Source) MediaTargets(item domain.FeedItem) []string {
	targets := make([]string, len(item.MediaURLs))
	for i := range item.MediaURLs {
		targets[i] = path.Join("twitter", "media", item.ExternalID, fmt.Sprintf("%s-%d", item.ExternalID, i))
	}
	return targets
}

func (s *Source) ToStoredPost(item domain.FeedItem) domain.StoredPost {
	return domain.NewStoredPost(item)
}

// FetchProfile reads avatar and follower count from the profile card.
func (s *Source) FetchProfile(ctx context.Context) (*domain.ProfileSnapshot, error) {
	doc, err := s.fetchDocument(ctx, s.timelineURL(""))
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	card := parseProfile(doc, s.cfg.InstanceURL)
	if !card.Found {
		return nil, fmt.Errorf("profile card not found: %w", domain.ErrMalformedResponse)
	}

	handle := card.Username
	if handle == "" {
		handle = s.cfg.Username
	}

	return &domain.ProfileSnapshot{
		Platform:      domain.PlatformTwitter,
		Handle:        handle,
		ProfileURL:    twitterBase + "/" + handle,
		AvatarURL:     card.AvatarURL,
		FollowerCount: card.Followers,
	}, nil
}
