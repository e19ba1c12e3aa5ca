package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"spotifiuby/internal/app/albums"
	"spotifiuby/internal/app/artists"
	"spotifiuby/internal/app/content"
	"spotifiuby/internal/app/playlists"
	"spotifiuby/internal/app/songs"
	"spotifiuby/internal/auth"
	"spotifiuby/internal/config"
	"spotifiuby/internal/events"
	"spotifiuby/internal/http/middleware"
	"spotifiuby/internal/httpapi"
	"spotifiuby/internal/payments"
	"spotifiuby/internal/storage"
	"spotifiuby/internal/tasks"
)

const (
	shutdownTimeout = 30 * time.Second
	paymentTimeout  = 15 * time.Second
)

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	dataStore, closeStore, err := openCatalog(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	bucket, closeBucket, err := openBucket(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeBucket()

	rdb, err := openRedis(ctx, cfg.Redis.URL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	queue := tasks.New(tasks.Config{
		Workers: cfg.Payments.Workers,
		Size:    cfg.Payments.QueueSize,
		Rate:    cfg.Payments.Rate,
		Timeout: paymentTimeout,
	}, log.Logger)

	publisher := events.NewRedisPublisher(rdb, cfg.Redis.EventsChannel)

	var notifier payments.PaymentNotifier = payments.Discard{}
	if cfg.Payments.URL != "" {
		notifier = payments.NewHTTPNotifier(cfg.Payments.URL, cfg.Payments.APIKey, nil)
	} else {
		log.Warn().Msg("PAYMENTS_URL not set, payment notifications disabled")
	}

	gate := auth.NewGate(
		auth.NewAPIKeys(cfg.Security.ServiceAPIKeys, cfg.IsProduction()),
		identityResolver(cfg, rdb),
		dataStore,
	)

	songSvc := songs.New(dataStore, dataStore, publisher, queue)
	artistSvc := artists.New(dataStore)
	albumSvc := albums.New(dataStore, songSvc, dataStore)
	playlistSvc := playlists.New(dataStore, songSvc)
	contentSvc := content.New(content.Deps{
		Songs:     dataStore,
		Artists:   dataStore,
		Blobs:     storage.NewContent(bucket),
		Payments:  notifier,
		Queue:     queue,
		Publisher: publisher,
	})

	api := httpapi.New(songSvc, artistSvc, albumSvc, playlistSvc, contentSvc, gate)

	var handler http.Handler = api.Routes()
	handler = middleware.CORS(cfg.Server.CORSAllowedOrigin)(handler)
	handler = middleware.RequestLogging()(handler)
	handler = middleware.Recovery()(handler)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("env", cfg.Env).Str("database", cfg.Database.Driver).Msg("spotifiuby listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := queue.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("background tasks abandoned")
	}
	log.Info().Msg("server exited")
	return nil
}

// identityResolver picks the users-api client, then signed tokens, then the
// permissive resolver used outside production.
func identityResolver(cfg *config.Config, rdb *redis.Client) auth.IdentityResolver {
	var resolver auth.IdentityResolver
	switch {
	case cfg.Security.IdentityURL != "":
		resolver = auth.NewUsersAPIResolver(cfg.Security.IdentityURL, cfg.Security.IdentityAPIKey, nil)
	case cfg.Security.IdentityJWTSecret != "":
		resolver = auth.NewTokenResolver(cfg.Security.IdentityJWTSecret)
	default:
		// Validate requires an identity source in production.
		log.Warn().Msg("no identity source configured, every caller is treated as admin")
		return auth.PermissiveResolver{}
	}
	return auth.NewCachedResolver(resolver, rdb, cfg.Security.IdentityCacheTTL)
}

func openBucket(ctx context.Context, cfg config.StorageConfig) (storage.Bucket, func(), error) {
	switch cfg.Driver {
	case config.StorageGCS:
		bucket, err := storage.NewGCSBucket(ctx, cfg.GCSBucket, cfg.GCSPrefix, cfg.GCSCredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return bucket, func() { _ = bucket.Close() }, nil
	default:
		bucket, err := storage.NewLocalBucket(cfg.ContentDir)
		if err != nil {
			return nil, nil, err
		}
		return bucket, func() {}, nil
	}
}

// openRedis returns a nil client when url is empty.
func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}
