package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/postgres"

	"github.com/emilythestrangee/blog/backend/internal/auth"
	"github.com/emilythestrangee/blog/backend/internal/awsclient"
	"github.com/emilythestrangee/blog/backend/internal/cache"
	"github.com/emilythestrangee/blog/backend/internal/config"
	"github.com/emilythestrangee/blog/backend/internal/database"
	"github.com/emilythestrangee/blog/backend/internal/handlers"
	"github.com/emilythestrangee/blog/backend/internal/monitoring"
	"github.com/emilythestrangee/blog/backend/internal/repository"
	"github.com/emilythestrangee/blog/backend/internal/server"
	"github.com/emilythestrangee/blog/backend/internal/service"
	"github.com/emilythestrangee/blog/backend/internal/storage"
)

func main() {
	app := cli.App{
		Name:   "blog",
		Usage:  "blog web server",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the database schema and exit",
				Action: migrate,
			},
		},
		ErrWriter: os.Stderr,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: l,
	}))
}

var migrate = func(cmd *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	l := newLogger(cfg.LogLevel)

	db, err := database.Open(postgres.Open(cfg.DSN()), cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	l.Info("database migrations completed")
	return database.Wrap(db, cfg.DBName, l).Close()
}

var serve = func(cmd *cli.Context) error {
	ctx, stop := signal.NotifyContext(cmd.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	l := newLogger(cfg.LogLevel)
	slog.SetDefault(l)
	for _, w := range cfg.Warnings() {
		l.Warn("configuration warning", "warning", w)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.New(cfg, l)
	if err != nil {
		return err
	}
	defer db.Close()

	var postCache *cache.Cache
	if cfg.RedisURL != "" {
		postCache, err = cache.Connect(ctx, cfg.RedisURL, l)
		if err != nil {
			// The cache is optional; reads fall through to Postgres.
			l.Warn("redis unavailable, continuing without cache", "error", err)
		} else {
			defer postCache.Close()
		}
	}

	store, sink, err := buildAWS(ctx, cfg, l)
	if err != nil {
		return err
	}

	tokens := auth.NewTokens(cfg.JWTSecret)
	posts := service.NewPostService(
		repository.NewPostRepository(db.GetDB(), postCache),
		store,
		sink,
		service.LogTargets{
			Group:        cfg.CloudWatchLogGroup,
			CreateStream: cfg.CloudWatchCreateStream,
			ErrorStream:  cfg.CloudWatchErrorStream,
		},
		cfg.MaxUploadBytes(),
		l,
	)

	h := handlers.NewHandler(handlers.Deps{
		Posts:         posts,
		Users:         repository.NewUserRepository(db.GetDB()),
		Tokens:        tokens,
		SecureCookies: cfg.IsProduction(),
		Logger:        l,
	})

	srv, err := server.New(cfg, db, h, tokens, l).HTTPServer()
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		l.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildAWS picks the blob store and log sink. AWS config is only loaded when one of them needs it.
func buildAWS(ctx context.Context, cfg *config.Config, l *slog.Logger) (storage.BlobStore, monitoring.Sink, error) {
	var (
		store storage.BlobStore
		sink  monitoring.Sink = monitoring.NopSink{}
	)

	if cfg.MediaBackend == "local" {
		local, err := storage.NewLocalStore(cfg.MediaRoot, cfg.MediaURL)
		if err != nil {
			return nil, nil, err
		}
		store = local
	}

	if cfg.MediaBackend != "s3" && !cfg.CloudWatchEnabled {
		return store, sink, nil
	}

	awsCfg, err := awsclient.Load(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.MediaBackend == "s3" {
		store = storage.NewS3Store(s3.NewFromConfig(awsCfg), cfg.AWSBucket, cfg.AWSRegion)
		l.Info("media stored in s3", "bucket", cfg.AWSBucket)
	}
	if cfg.CloudWatchEnabled {
		sink = monitoring.NewCloudWatchSink(cloudwatchlogs.NewFromConfig(awsCfg), l, cfg.CloudWatchTimeout)
		l.Info("cloudwatch logging enabled", "group", cfg.CloudWatchLogGroup)
	}
	return store, sink, nil
}
