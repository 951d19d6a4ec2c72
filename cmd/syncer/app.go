package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"social_syncer/internal/config"
	"social_syncer/internal/domain"
	"social_syncer/internal/lock"
	"social_syncer/internal/media"
	"social_syncer/internal/metrics"
	"social_syncer/internal/publisher"
	"social_syncer/internal/service"
	"social_syncer/internal/source"
	"social_syncer/internal/source/instagram"
	"social_syncer/internal/source/twitter"
	"social_syncer/internal/source/youtube"
	"social_syncer/internal/storage/postgres"
)

// app holds the wired components shared by the subcommands.
type app struct {
	db          *sqlx.DB
	runner      *service.Runner
	posts       *postgres.PostStore
	profiles    *postgres.ProfileStore
	checkpoints *postgres.CheckpointStore
	closers     []io.Closer
}

func connectDB(cfg *config.Config, logger *slog.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("connected to database", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)
	return db, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	db, err := connectDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		db:          db,
		posts:       postgres.NewPostStore(db),
		profiles:    postgres.NewProfileStore(db),
		checkpoints: postgres.NewCheckpointStore(db),
	}
	if err := a.wire(ctx, cfg, logger); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	mediaStore := postgres.NewMediaStore(a.db)
	txManager := postgres.NewTransactionManager(a.db)

	store, err := media.NewStore(ctx, cfg.Media)
	if err != nil {
		return fmt.Errorf("create media store: %w", err)
	}
	cache := media.NewCache(store, media.Config{
		Timeout:   cfg.Media.Timeout,
		MaxSize:   cfg.Media.MaxSize,
		UserAgent: cfg.HTTP.UserAgent,
	}, logger)
	logger.Info("media store ready", "backend", store.Name())

	var locker service.Locker = lock.NewLocal()
	if cfg.Redis.URL != "" {
		redisLock, err := lock.NewRedisWithURL(cfg.Redis.URL, cfg.Redis.LockTTL, logger)
		if err != nil {
			return fmt.Errorf("create redis lock: %w", err)
		}
		a.closers = append(a.closers, redisLock)
		if err := redisLock.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		locker = redisLock
	}

	// A nil interface keeps the sync service from publishing.
	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect to rabbitmq: %w", err)
		}
		a.closers = append(a.closers, rabbitMQ)
		pub = rabbitMQ
	}

	recorder := metrics.Recorder{}
	a.runner = service.NewRunner(locker, cfg.Sync.Timeout, logger)

	register := func(adapter service.Adapter, profileSource service.ProfileSource) {
		platform := adapter.Platform()
		a.runner.RegisterSyncer(platform, service.NewSyncService(
			adapter, a.posts, mediaStore, a.checkpoints, txManager,
			cache, pub, recorder, logger, cfg.Sync,
		))
		a.runner.RegisterProfile(platform, service.NewProfileService(
			profileSource, a.profiles, cache, recorder, logger, cfg.Sync,
		))
	}

	clientCfg := source.Config{Timeout: cfg.HTTP.Timeout, UserAgent: cfg.HTTP.UserAgent}

	if cfg.YouTube.Enabled {
		src := youtube.New(youtube.Config{
			ChannelID:   cfg.YouTube.ChannelID,
			ChannelName: cfg.YouTube.ChannelName,
			Handle:      cfg.YouTube.Handle,
			APIKey:      cfg.YouTube.APIKey,
			FeedURL:     cfg.YouTube.FeedURL,
			APIBaseURL:  cfg.YouTube.APIBaseURL,
		}, source.NewClient(clientCfg, domain.PlatformYouTube), logger)
		register(src, src)
	}

	if cfg.Instagram.Enabled {
		src := instagram.New(instagram.Config{
			UserID:      cfg.Instagram.UserID,
			Username:    cfg.Instagram.Username,
			AccessToken: cfg.Instagram.AccessToken,
			GraphURL:    cfg.Instagram.GraphURL,
		}, source.NewClient(clientCfg, domain.PlatformInstagram), logger)
		register(src, src)
	}

	if cfg.Twitter.Enabled {
		src := twitter.New(twitter.Config{
			Username:    cfg.Twitter.Username,
			InstanceURL: cfg.Twitter.InstanceURL,
			MaxItems:    cfg.Twitter.MaxItems,
			MaxPages:    cfg.Twitter.MaxPages,
			PageDelay:   cfg.Twitter.PageDelay,
		}, source.NewClient(clientCfg, domain.PlatformTwitter), logger)
		register(src, src)
	}

	logger.Info("platforms registered", "platforms", a.runner.Platforms())
	return nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
	a.db.Close()
}
