package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"spotifiuby/internal/app/albums"
	"spotifiuby/internal/app/artists"
	"spotifiuby/internal/app/content"
	"spotifiuby/internal/app/playlists"
	"spotifiuby/internal/app/songs"
	"spotifiuby/internal/auth"
	"spotifiuby/internal/config"
	"spotifiuby/internal/store"
	"spotifiuby/internal/store/mongostore"
)

// catalogStore is satisfied by both the Postgres and the MongoDB stores.
type catalogStore interface {
	songs.Store
	artists.Store
	albums.Store
	playlists.Store
	content.SongStore
	auth.SubscriptionLookup
}

var (
	_ catalogStore = (*store.Store)(nil)
	_ catalogStore = (*mongostore.Store)(nil)
)

// openCatalog connects the configured backend. The returned func releases it.
func openCatalog(ctx context.Context, cfg config.DatabaseConfig) (catalogStore, func(), error) {
	switch cfg.Driver {
	case config.DriverMongo:
		client, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }

		dataStore := mongostore.New(client.Database(cfg.MongoDatabase))
		if err := dataStore.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return dataStore, closeFn, nil
	default:
		db, err := openDatabase(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		return store.New(db), func() { _ = db.Close() }, nil
	}
}

// openDatabase establishes a database connection and retries until the instance responds.
func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	const (
		pingTimeout    = 5 * time.Second
		maxWait        = 30 * time.Second
		initialBackoff = 500 * time.Millisecond
		maxBackoff     = 5 * time.Second
	)

	deadline := time.Now().Add(maxWait)
	backoff := initialBackoff
	var lastErr error

	for {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = db.PingContext(pingCtx)
		cancel()

		if lastErr == nil {
			return db, nil
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			break
		}

		time.Sleep(backoff)
		backoff = min(backoff*2, maxBackoff)
	}

	_ = db.Close()
	return nil, fmt.Errorf("ping database: %w", lastErr)
}
