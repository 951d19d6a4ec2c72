// Package source holds the HTTP plumbing shared by the platform clients.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"social_syncer/internal/domain"
)

const maxBodySize = 16 << 20

// Config holds upstream HTTP client configuration.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Client issues single GET requests against an upstream. It never retries:
// a failed fetch aborts the sync cycle.
type Client struct {
	httpClient *http.Client
	userAgent  string
	platform   domain.Platform
}

func NewClient(cfg Config, platform domain.Platform) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
		platform:   platform,
	}
}

// Get returns the response body of a 200 response. Any other status is
// reported as a *domain.UpstreamError.
func (c *Client) Get(ctx context.Context, url string, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &domain.UpstreamError{
			Platform:   c.platform,
			URL:        redact(url),
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// GetJSON decodes a 200 JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.Get(ctx, url, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}
