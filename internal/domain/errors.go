package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable means an external API answered with a non-success status.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMalformedResponse means a payload lacked a field the cycle cannot do without.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrDownloadFailed means a media asset could not be fetched.
	ErrDownloadFailed = errors.New("download failed")
	// ErrPersistenceConflict means another sync for the same platform is in flight.
	ErrPersistenceConflict = errors.New("persistence conflict")
)

// UpstreamError carries the status code returned by an external API.
type UpstreamError struct {
	Platform   Platform
	URL        string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream returned status %d", e.Platform, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstreamUnavailable
}

// DownloadError carries the status code of a failed media download.
type DownloadError struct {
	URL        string
	StatusCode int
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: status %d", e.URL, e.StatusCode)
}

func (e *DownloadError) Unwrap() error {
	return ErrDownloadFailed
}

// StatusCodeOf returns the upstream HTTP status embedded in err, or 0.
func StatusCodeOf(err error) int {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode
	}
	var download *DownloadError
	if errors.As(err, &download) {
		return download.StatusCode
	}
	return 0
}
