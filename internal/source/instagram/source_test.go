package instagram

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social_syncer/internal/domain"
	"social_syncer/internal/source"
)

const discoveryPayload = `{
  "id": "17841451041881672",
  "business_discovery": {
    "username": "pannacotech",
    "followers_count": 2340000,
    "profile_picture_url": "https://cdn.example/avatar.jpg",
    "media": {"data": [
      {"id": "p1", "caption": "reel", "like_count": 1500, "timestamp": "2024-05-03T12:00:00+0000",
       "media_product_type": "REELS", "media_type": "VIDEO", "permalink": "https://www.instagram.com/reel/p1/",
       "media_url": "https://cdn.example/p1.mp4", "thumbnail_url": "https://cdn.example/p1.jpg"},
      {"id": "p2", "like_count": 12, "timestamp": "2024-05-02T12:00:00+0000",
       "media_product_type": "FEED", "media_type": "CAROUSEL_ALBUM", "permalink": "https://www.instagram.com/p/p2/",
       "media_url": "https://cdn.example/p2-cover.jpg",
       "children": {"data": [{"media_url": "https://cdn.example/p2-a.jpg"}, {"media_url": "https://cdn.example/p2-b.mp4"}]}},
      {"id": "p3", "caption": "single", "timestamp": "2024-05-01T12:00:00+0000",
       "media_product_type": "FEED", "media_type": "IMAGE", "permalink": "https://www.instagram.com/p/p3/",
       "media_url": "https://cdn.example/p3.jpg"},
      {"id": "p4", "caption": "no media url", "media_product_type": "REELS", "media_type": "VIDEO"}
    ]}
  }
}`

func newTestSource(t *testing.T, handler http.Handler) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	client := source.NewClient(source.Config{Timeout: 5 * time.Second, UserAgent: "test"}, domain.PlatformInstagram)

	return New(Config{
		UserID:      "17841451041881672",
		Username:    "pannacotech",
		AccessToken: "token",
		GraphURL:    srv.URL,
	}, client, logger)
}

func TestFetchItems(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/17841451041881672", r.URL.Path)
		assert.Equal(t, "token", r.URL.Query().Get("access_token"))
		assert.True(t, strings.HasPrefix(r.URL.Query().Get("fields"), "business_discovery.username(pannacotech)"))
		_, _ = w.Write([]byte(discoveryPayload))
	}))

	items, err := src.FetchItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "p1", src.LeadingID(items))

	reel := items[0]
	assert.True(t, reel.IsVideo)
	assert.Equal(t, []string{"https://cdn.example/p1.mp4"}, reel.MediaURLs)
	assert.Equal(t, "https://cdn.example/p1.jpg", reel.ThumbnailURL)
	assert.Equal(t, int64(1500), reel.Count)
	assert.Equal(t, time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC), reel.PublishedAt.UTC())
	assert.Equal(t, []string{"instagram/videos/p1"}, src.MediaTargets(reel))

	carousel := items[1]
	assert.False(t, carousel.IsVideo)
	assert.False(t, carousel.IsSingle)
	assert.Equal(t, "", carousel.Caption)
	assert.Equal(t, []string{"https://cdn.example/p2-a.jpg", "https://cdn.example/p2-b.mp4"}, carousel.MediaURLs)
	assert.Equal(t, []string{"instagram/media/p2/p2-0", "instagram/media/p2/p2-1"}, src.MediaTargets(carousel))

	single := items[2]
	assert.True(t, single.IsSingle)
	assert.Zero(t, single.Count)
	assert.Equal(t, "https://cdn.example/p3.jpg", single.ThumbnailURL)

	post := src.ToStoredPost(reel)
	assert.Equal(t, "1.5K", post.CountDisplay)
	assert.Equal(t, domain.PlatformInstagram, post.Platform)
}

func TestFetchItems_MissingDiscovery(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))

	_, err := src.FetchItems(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedResponse))
}

func TestFetchItems_ExpiredToken(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Error validating access token"}}`))
	}))

	_, err := src.FetchItems(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, domain.StatusCodeOf(err))
}

func TestFetchProfile(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(discoveryPayload))
	}))

	profile, err := src.FetchProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pannacotech", profile.Handle)
	assert.Equal(t, "https://www.instagram.com/pannacotech/", profile.ProfileURL)
	assert.Equal(t, "https://cdn.example/avatar.jpg", profile.AvatarURL)
	assert.Equal(t, int64(2340000), profile.FollowerCount)
}
