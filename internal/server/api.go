package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"social_syncer/internal/domain"
)

type postsResponse struct {
	Posts      []domain.StoredPost `json:"posts"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	Total      int                 `json:"total"`
	TotalPages int                 `json:"total_pages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// listPosts serves one page of posts. A missing or invalid page falls back
// to the first one.
func (s *Server) listPosts(c echo.Context) error {
	filter := domain.PostFilter{Page: 1, PageSize: s.cfg.PageSize}

	if raw := c.QueryParam("platform"); raw != "" {
		platform, err := domain.ParsePlatform(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		filter.Platform = platform
	}
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil && page > 0 {
		filter.Page = page
	}

	posts, total, err := s.posts.List(c.Request().Context(), filter)
	if err != nil {
		s.logger.Error("list posts failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
	if posts == nil {
		posts = []domain.StoredPost{}
	}

	totalPages := 0
	if filter.PageSize > 0 {
		totalPages = (total + filter.PageSize - 1) / filter.PageSize
	}

	return c.JSON(http.StatusOK, postsResponse{
		Posts:      posts,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		Total:      total,
		TotalPages: totalPages,
	})
}

func (s *Server) listProfiles(c echo.Context) error {
	profiles, err := s.profiles.List(c.Request().Context())
	if err != nil {
		s.logger.Error("list profiles failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
	if profiles == nil {
		profiles = []domain.ProfileSnapshot{}
	}
	return c.JSON(http.StatusOK, profiles)
}
