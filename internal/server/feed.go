package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"

	"social_syncer/internal/domain"
)

const feedSize = 30

// atomFeed renders the newest posts of every platform as an Atom feed.
func (s *Server) atomFeed(c echo.Context) error {
	posts, _, err := s.posts.List(c.Request().Context(), domain.PostFilter{Page: 1, PageSize: feedSize})
	if err != nil {
		s.logger.Error("list posts for feed failed", "error", err)
		return c.String(http.StatusInternalServerError, "Internal error")
	}

	atom, err := buildFeed(posts, s.cfg.PublicURL, time.Now()).ToAtom()
	if err != nil {
		s.logger.Error("render feed failed", "error", err)
		return c.String(http.StatusInternalServerError, "Internal error")
	}

	return c.Blob(http.StatusOK, "application/atom+xml; charset=utf-8", []byte(atom))
}

func buildFeed(posts []domain.StoredPost, publicURL string, now time.Time) *feeds.Feed {
	updated := now
	if len(posts) > 0 {
		updated = posts[0].PublishedAt
	}

	feed := &feeds.Feed{
		Title:       "Social feed",
		Description: "Latest videos, posts and tweets",
		Link:        &feeds.Link{Href: publicURL, Rel: "self", Type: "text/html"},
		Id:          strings.TrimRight(publicURL, "/") + "/feed.atom",
		Created:     updated,
		Updated:     updated,
	}

	for _, p := range posts {
		item := &feeds.Item{
			Title:       itemTitle(p),
			Link:        &feeds.Link{Href: p.Permalink, Rel: "alternate", Type: "text/html"},
			Id:          p.Permalink,
			Description: p.Caption,
			Created:     p.PublishedAt,
			Updated:     p.UpdatedAt,
		}
		if p.ChannelName != "" {
			item.Author = &feeds.Author{Name: p.ChannelName}
		}
		if item.Id == "" {
			item.Id = string(p.Platform) + ":" + p.ExternalID
		}
		feed.Items = append(feed.Items, item)
	}

	return feed
}

// itemTitle falls back to the start of the caption for posts without a
// title.
func itemTitle(p domain.StoredPost) string {
	title := p.Title
	if title == "" {
		title = p.Caption
	}
	if r := []rune(title); len(r) > 80 {
		title = string(r[:80]) + "…"
	}
	if title == "" {
		title = p.Platform.Label() + " post " + p.ExternalID
	}
	return p.Platform.Label() + ": " + title
}
