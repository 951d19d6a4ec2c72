package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"social_syncer/internal/scheduler"
	"social_syncer/internal/server"
	"social_syncer/internal/storage/postgres/migrations"
)

const shutdownTimeout = 10 * time.Second

var autoMigrate bool

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending migrations before serving")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the trigger endpoints and read API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		if autoMigrate {
			if err := migrations.MigrateUp(a.db.DB); err != nil {
				return err
			}
		}
		if err := migrations.Check(a.db.DB); err != nil {
			return fmt.Errorf("schema check: %w", err)
		}

		srvCfg := server.Config{
			Addr:          cfg.Server.Addr,
			TriggerSuffix: cfg.Server.TriggerSuffix,
			PageSize:      cfg.Server.PageSize,
			PublicURL:     cfg.Server.PublicURL,
		}
		if cfg.Media.Backend == "filesystem" {
			srvCfg.MediaRoot = cfg.Media.Root
		}
		srv := server.New(srvCfg, a.runner, a.posts, a.profiles, a.db, logger)

		errCh := make(chan error, 2)
		go func() {
			logger.Info("starting http server", "addr", cfg.Server.Addr)
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()

		if cfg.Sync.Interval > 0 {
			sched := scheduler.NewScheduler(a.runner, cfg.Sync.Interval, logger)
			go func() {
				if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					errCh <- fmt.Errorf("scheduler: %w", err)
				}
			}()
		}

		var runErr error
		select {
		case <-ctx.Done():
		case runErr = <-errCh:
			logger.Error("component failed", "error", runErr)
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown", "error", err)
		}
		logger.Info("syncer stopped")
		return runErr
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync [platform...]",
	Short: "Run one sync cycle per platform (all enabled when none given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		platforms, err := parsePlatforms(args, a.runner.Platforms())
		if err != nil {
			return err
		}

		var failed int
		for _, p := range platforms {
			stats, err := a.runner.Sync(ctx, p)
			if err != nil {
				logger.Error("sync failed", "platform", p, "error", err)
				failed++
				continue
			}
			printf(cmd, "%-10s fetched=%d new=%d updated=%d skipped=%d media_failures=%d errors=%d advanced=%t (%s)\n",
				p, stats.Fetched, stats.New, stats.Updated, stats.Skipped,
				stats.MediaFailures, stats.Errors, stats.CheckpointAdvanced, stats.Duration.Round(time.Millisecond))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d platforms failed", failed, len(platforms))
		}
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile [platform...]",
	Short: "Refresh the stored profile snapshot per platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		platforms, err := parsePlatforms(args, a.runner.Platforms())
		if err != nil {
			return err
		}

		var failed int
		for _, p := range platforms {
			snap, err := a.runner.RefreshProfile(ctx, p)
			if err != nil {
				logger.Error("profile refresh failed", "platform", p, "error", err)
				failed++
				continue
			}
			printf(cmd, "%-10s @%s followers=%s\n", p, snap.Handle, snap.FollowerDisplay)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d platforms failed", failed, len(platforms))
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := connectDB(cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrations.MigrateUp(db.DB); err != nil {
			return err
		}
		st, err := migrations.GetStatus(db.DB)
		if err != nil {
			return err
		}
		logger.Info("migrations applied", "version", st.Version)
		printf(cmd, "schema at version %d\n", st.Version)
		return nil
	},
}
