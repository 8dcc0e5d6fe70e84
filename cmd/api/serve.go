package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	schema "atomdeck/api/db"
	"atomdeck/api/internal/app"
	"atomdeck/api/internal/assets"
	"atomdeck/api/internal/bridge"
	"atomdeck/api/internal/cache"
	"atomdeck/api/internal/config"
	"atomdeck/api/internal/gitrepo"
	"atomdeck/api/internal/logging"
	"atomdeck/api/internal/operation"
	"atomdeck/api/internal/search"
	"atomdeck/api/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, config.FromViper(v))
		},
	}
	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().String("migrations-dir", "", "directory of SQL migrations (default: the schema built into the binary)")
	bindFlag(v, cmd, "API_ADDR", "addr")
	bindFlag(v, cmd, "ATOMDECK_MIGRATIONS_DIR", "migrations-dir")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := store.Open(ctx, cfg.DatabaseURL, store.DefaultPool(), logger)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	migrations, err := migrationSource(cfg.MigrationsDir)
	if err != nil {
		return err
	}
	if _, err := store.ApplyMigrations(ctx, db, migrations, logger); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		return fmt.Errorf("create repos dir: %w", err)
	}

	dataStore := store.NewPostgresStore(db)
	opts := []app.Option{}

	pgfts := search.NewPgFTS(db)
	var searchService *search.Service
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
		searchService = search.NewService(meiliClient, pgfts, logger)
	} else {
		searchService = search.NewService(nil, pgfts, logger)
	}
	opts = append(opts,
		app.WithSearch(searchService),
		app.WithReindexer(func(ctx context.Context) { searchService.ReindexAllFromPG(ctx, pgfts) }),
	)

	sinks := []bridge.Sink{}
	hub := bridge.NewHub(logger, cfg.CORSOrigin)
	defer hub.Close()
	sinks = append(sinks, hub)

	var redisCache *cache.RedisCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisCache, err = cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, running without cache", zap.Error(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			opts = append(opts, app.WithCache(redisCache))
			sinks = append(sinks, bridge.NewRedisSink(redisCache.Client()))
		}
	}
	if strings.TrimSpace(cfg.TelemetryURL) != "" {
		sinks = append(sinks, bridge.NewHTTPSink(cfg.TelemetryURL, cfg.TelemetryTimeout))
	}

	dispatcher := bridge.NewDispatcher(logger, cfg.BridgeQueueSize, cfg.TelemetryTimeout, sinks...)
	dispatcher.Start(ctx)
	opts = append(opts, app.WithBridge(dispatcher))

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		assetStore, err := assets.New(ctx, assets.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		}, logger)
		if err != nil {
			logger.Warn("asset storage unavailable, uploads disabled", zap.Error(err))
		} else {
			opts = append(opts, app.WithAssets(assetStore))
		}
	}

	service := app.New(cfg, dataStore, gitrepo.New(cfg.ReposDir), logger, opts...)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, app.WithHub(hub))
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("atomdeck api listening", zap.String("addr", cfg.Addr), zap.String("version", app.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	if redisCache != nil {
		subscriber := bridge.NewSuggestionSubscriber(redisCache.Client(), func(ctx context.Context, presentationID string, op operation.AtomicOperation) error {
			_, err := service.ApplySuggestion(ctx, presentationID, op)
			return err
		}, logger)
		g.Go(func() error {
			if err := subscriber.Run(gctx); err != nil {
				logger.Warn("suggestion subscriber stopped", zap.Error(err))
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")

		err := server.Shutdown(shutdownCtx)
		err = multierr.Append(err, service.Flush(shutdownCtx))
		err = multierr.Append(err, dispatcher.Close(shutdownCtx))
		return err
	})
	return g.Wait()
}

// migrationSource reads migrations from dir when one is configured and from
// the embedded schema otherwise.
func migrationSource(dir string) (fs.FS, error) {
	if strings.TrimSpace(dir) != "" {
		return os.DirFS(dir), nil
	}
	sub, err := fs.Sub(schema.Migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return sub, nil
}
