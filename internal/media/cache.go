// Package media downloads remote images and videos and stores them under
// stable keys so pages keep working once upstream URLs expire.
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"social_syncer/internal/domain"
)

const defaultExtension = ".bin"

var errTooLarge = fmt.Errorf("%w: asset exceeds size limit", domain.ErrDownloadFailed)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"video/mp4":  ".mp4",
}

// Config holds media download configuration.
type Config struct {
	Timeout   time.Duration
	MaxSize   int64
	UserAgent string
}

// Cache localizes remote assets into a Store.
type Cache struct {
	httpClient *http.Client
	store      Store
	cfg        Config
	logger     *slog.Logger
}

func NewCache(store Store, cfg Config, logger *slog.Logger) *Cache {
	return &Cache{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		store:      store,
		cfg:        cfg,
		logger:     logger.With("component", "media", "backend", store.Name()),
	}
}

// Localize downloads remoteURL and stores it at target plus an extension
// inferred from the response. Repeating the call for the same target
// overwrites the asset.
func (c *Cache) Localize(ctx context.Context, remoteURL, target string) (domain.LocalMediaAsset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return domain.LocalMediaAsset{}, fmt.Errorf("create request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.LocalMediaAsset{}, fmt.Errorf("%w: %v", domain.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.LocalMediaAsset{}, &domain.DownloadError{URL: remoteURL, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	key := strings.TrimPrefix(target, "/") + Extension(contentType, remoteURL)

	var body io.Reader = resp.Body
	if c.cfg.MaxSize > 0 {
		body = &sizeLimitReader{r: resp.Body, remaining: c.cfg.MaxSize}
	}

	size, err := c.store.Put(ctx, key, body, contentType)
	if err != nil {
		return domain.LocalMediaAsset{}, fmt.Errorf("store %s: %w", key, err)
	}

	c.logger.Debug("localized asset", "key", key, "size", size)

	return domain.LocalMediaAsset{
		RelativePath: key,
		ContentType:  contentType,
		Size:         size,
	}, nil
}

// Extension picks the file extension from the content type, then from the
// URL path, then falls back to ".bin".
func Extension(contentType, remoteURL string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := extensions[mediaType]; ok {
			return ext
		}
	}

	if u, err := url.Parse(remoteURL); err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		if ext == ".jpeg" {
			ext = ".jpg"
		}
		for _, known := range extensions {
			if ext == known {
				return ext
			}
		}
	}

	return defaultExtension
}

// sizeLimitReader fails the read once more than remaining bytes came
// through, so an oversized asset is never committed.
type sizeLimitReader struct {
	r         io.Reader
	remaining int64
}

func (l *sizeLimitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, errTooLarge
	}
	return n, err
}
