// Package server exposes the sync triggers and a read API over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"social_syncer/internal/domain"
)

type Runner interface {
	Sync(ctx context.Context, platform domain.Platform) (*domain.SyncStats, error)
	RefreshProfile(ctx context.Context, platform domain.Platform) (*domain.ProfileSnapshot, error)
}

type PostLister interface {
	List(ctx context.Context, filter domain.PostFilter) ([]domain.StoredPost, int, error)
}

type ProfileLister interface {
	List(ctx context.Context) ([]domain.ProfileSnapshot, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Config holds HTTP server configuration.
type Config struct {
	Addr          string
	TriggerSuffix string
	PageSize      int
	PublicURL     string
	// MediaRoot is served under /static when non-empty.
	MediaRoot string
}

type Server struct {
	echo     *echo.Echo
	runner   Runner
	posts    PostLister
	profiles ProfileLister
	db       Pinger
	cfg      Config
	logger   *slog.Logger
}

func New(cfg Config, runner Runner, posts PostLister, profiles ProfileLister, db Pinger, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		runner:   runner,
		posts:    posts,
		profiles: profiles,
		db:       db,
		cfg:      cfg,
		logger:   logger.With("component", "http"),
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				s.logger.Info("request completed",
					"method", v.Method,
					"uri", s.redactURI(v.URI),
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				s.logger.Error("request failed",
					"method", v.Method,
					"uri", s.redactURI(v.URI),
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	s.routes()
	return s
}

func (s *Server) routes() {
	suffix := s.cfg.TriggerSuffix

	s.echo.GET(fmt.Sprintf("/youtube-%s-API-URL", suffix), s.trigger(domain.PlatformYouTube, true, false))
	s.echo.GET(fmt.Sprintf("/bannerYT-%s-API-URL", suffix), s.trigger(domain.PlatformYouTube, false, true))
	s.echo.GET(fmt.Sprintf("/instaScape-%s-API-URL", suffix), s.trigger(domain.PlatformInstagram, true, true))
	s.echo.GET(fmt.Sprintf("/twitterScape-%s-API-URL", suffix), s.trigger(domain.PlatformTwitter, true, true))

	s.echo.GET("/api/posts", s.listPosts)
	s.echo.GET("/api/profiles", s.listProfiles)
	s.echo.GET("/feed.atom", s.atomFeed)
	s.echo.GET("/healthz", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if s.cfg.MediaRoot != "" {
		s.echo.Static("/static", s.cfg.MediaRoot)
	}
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.cfg.Addr)
	if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	if s.db != nil {
		if err := s.db.PingContext(c.Request().Context()); err != nil {
			return c.String(http.StatusServiceUnavailable, "database unavailable")
		}
	}
	return c.String(http.StatusOK, "ok")
}

// redactURI hides the trigger suffix from request logs.
func (s *Server) redactURI(uri string) string {
	if s.cfg.TriggerSuffix == "" {
		return uri
	}
	return strings.ReplaceAll(uri, s.cfg.TriggerSuffix, "***")
}
