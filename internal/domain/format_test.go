package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCount(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{950, "950"},
		{999, "999"},
		{1000, "1.0K"},
		{1500, "1.5K"},
		{12340, "12.34K"},
		{999999, "1000.0K"},
		{1_000_000, "1.0M"},
		{2_340_000, "2.34M"},
		{15_678_901, "15.68M"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCount(tt.n))
		})
	}
}

func TestParseCount(t *testing.T) {
	n, err := ParseCount("1,234")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), n)

	n, err = ParseCount("  ")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = ParseCount("12k")
	assert.Error(t, err)
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform(" YouTube ")
	require.NoError(t, err)
	assert.Equal(t, PlatformYouTube, p)
	assert.Equal(t, "YouTube", p.Label())

	_, err = ParsePlatform("myspace")
	assert.Error(t, err)
}

func TestStatusCodeOf(t *testing.T) {
	err := fmt.Errorf("fetch items: %w", &UpstreamError{Platform: PlatformYouTube, StatusCode: 503})
	assert.True(t, errors.Is(err, ErrUpstreamUnavailable))
	assert.Equal(t, 503, StatusCodeOf(err))

	err = fmt.Errorf("localize: %w", &DownloadError{URL: "https://cdn.example/x.jpg", StatusCode: 404})
	assert.True(t, errors.Is(err, ErrDownloadFailed))
	assert.Equal(t, 404, StatusCodeOf(err))

	assert.Zero(t, StatusCodeOf(errors.New("boom")))
}
