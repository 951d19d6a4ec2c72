package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"social_syncer/internal/domain"
	"social_syncer/internal/service"
)

// trigger runs the sync cycle and/or the profile refresh of platform
// inside the request and answers in plain text with the upstream status.
func (s *Server) trigger(platform domain.Platform, syncPosts, refreshProfile bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		if syncPosts {
			if _, err := s.runner.Sync(ctx, platform); err != nil {
				return s.triggerError(c, platform, err)
			}
		}
		if refreshProfile {
			if _, err := s.runner.RefreshProfile(ctx, platform); err != nil {
				return s.triggerError(c, platform, err)
			}
		}

		return c.String(http.StatusOK, "Status code: 200")
	}
}

func (s *Server) triggerError(c echo.Context, platform domain.Platform, err error) error {
	s.logger.Error("trigger failed", "platform", platform, "error", err)

	switch {
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return c.String(http.StatusBadGateway, fmt.Sprintf("Failed to fetch data. Status code: %d", domain.StatusCodeOf(err)))
	case errors.Is(err, domain.ErrMalformedResponse):
		return c.String(http.StatusBadGateway, "Failed to fetch data. Malformed response")
	case errors.Is(err, domain.ErrPersistenceConflict):
		return c.String(http.StatusConflict, "Sync already in progress")
	case errors.Is(err, service.ErrPlatformDisabled):
		return c.String(http.StatusNotFound, "Platform not enabled")
	default:
		return c.String(http.StatusInternalServerError, "Internal error")
	}
}
