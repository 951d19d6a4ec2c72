package youtube

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social_syncer/internal/domain"
	"social_syncer/internal/source"
)

func newTestSource(t *testing.T, handler http.Handler, apiKey string) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	client := source.NewClient(source.Config{Timeout: 5 * time.Second, UserAgent: "test"}, domain.PlatformYouTube)

	return New(Config{
		ChannelID:   "UCZO7iTy_uLmPbZiofPJpeXA",
		ChannelName: "Pannacotech",
		APIKey:      apiKey,
		FeedURL:     srv.URL + "/feeds/videos.xml",
		APIBaseURL:  srv.URL + "/youtube/v3",
	}, client, logger)
}

func TestFetchItems_ParsesFeedInResponseOrder(t *testing.T) {
	feed, err := os.ReadFile("testdata/feed.xml")
	require.NoError(t, err)

	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/feeds/videos.xml", r.URL.Path)
		assert.Equal(t, "UCZO7iTy_uLmPbZiofPJpeXA", r.URL.Query().Get("channel_id"))
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write(feed)
	}), "")

	items, err := src.FetchItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	// vidB is published later than vidA but the feed order wins.
	assert.Equal(t, "vidA", items[0].ExternalID)
	assert.Equal(t, "vidB", items[1].ExternalID)
	assert.Equal(t, "vidA", src.LeadingID(items))

	first := items[0]
	assert.Equal(t, domain.PlatformYouTube, first.Platform)
	assert.Equal(t, "Newest upload", first.Title)
	assert.Equal(t, "Launch day", first.Caption)
	assert.Equal(t, int64(1500), first.Count)
	assert.Equal(t, "https://i1.ytimg.com/vi/vidA/hqdefault.jpg", first.ThumbnailURL)
	assert.Equal(t, []string{"https://i1.ytimg.com/vi/vidA/hqdefault.jpg"}, first.MediaURLs)
	assert.Equal(t, "https://www.youtube.com/watch?v=vidA", first.Permalink)
	assert.Equal(t, "Pannacotech", first.ChannelName)
	assert.Equal(t, time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC), first.PublishedAt.UTC())

	assert.Equal(t, "", items[1].Caption)
	assert.Equal(t, int64(2340000), items[1].Count)

	// Optional fields missing entirely degrade to empty values.
	bare := items[2]
	assert.Equal(t, "vidC", bare.ExternalID)
	assert.Zero(t, bare.Count)
	assert.Empty(t, bare.MediaURLs)
}

func TestFetchItems_UpstreamFailure(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), "")

	items, err := src.FetchItems(context.Background())
	require.Error(t, err)
	assert.Nil(t, items)
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
	assert.Equal(t, http.StatusNotFound, domain.StatusCodeOf(err))
}

func TestToStoredPost_FormatsViews(t *testing.T) {
	src := newTestSource(t, http.NotFoundHandler(), "")

	post := src.ToStoredPost(domain.FeedItem{
		ExternalID: "vidB",
		Platform:   domain.PlatformYouTube,
		Count:      2340000,
		MediaURLs:  []string{"https://i1.ytimg.com/vi/vidB/hqdefault.jpg"},
	})

	assert.Equal(t, "2.34M", post.CountDisplay)
	assert.Equal(t, "Pannacotech", post.ChannelName)
	require.Len(t, post.Media, 1)
	assert.Equal(t, []string{"youtube/thumbnails/vidB"}, src.MediaTargets(domain.FeedItem{
		ExternalID: "vidB",
		MediaURLs:  []string{"https://i1.ytimg.com/vi/vidB/hqdefault.jpg"},
	}))
}

func TestFetchProfile(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/channels", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"items":[{
			"id":"UCZO7iTy_uLmPbZiofPJpeXA",
			"snippet":{"title":"Pannacotech","customUrl":"@pannacotech","thumbnails":{"high":{"url":"https://yt3.example/avatar.jpg"}}},
			"statistics":{"subscriberCount":"15300"},
			"brandingSettings":{"image":{"bannerExternalUrl":"https://yt3.example/banner"}}
		}]}`))
	}), "test-key")

	profile, err := src.FetchProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pannacotech", profile.Handle)
	assert.Equal(t, "https://www.youtube.com/@pannacotech", profile.ProfileURL)
	assert.Equal(t, "https://yt3.example/avatar.jpg", profile.AvatarURL)
	assert.Equal(t, "https://yt3.example/banner", profile.BannerURL)
	assert.Equal(t, int64(15300), profile.FollowerCount)
}

func TestFetchProfile_NoChannel(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}), "test-key")

	_, err := src.FetchProfile(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedResponse))
}
