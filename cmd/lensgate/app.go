package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"lensgate/internal/config"
	"lensgate/internal/media"
	"lensgate/internal/notion"
	"lensgate/internal/reconcile"
	"lensgate/internal/search"
	"lensgate/internal/service"
	"lensgate/internal/storage"
)

// app is the wired object graph shared by serve and sync.
type app struct {
	db    *sql.DB
	index *search.Index
	media media.Backend

	sync    service.SyncService
	content service.ContentService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	dbPath := storage.ResolvePath(cfg.DatabaseURL)
	db, err := storage.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database initialized", "path", dbPath)

	store, err := newMediaStore(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	fetcher := media.NewFetcher(store, cfg.MediaURLPrefix, cfg.HTTPTimeout)
	slog.Info("Media store ready", "backend", cfg.MediaBackend, "prefix", cfg.MediaURLPrefix)

	index, err := search.Open(cfg.SearchIndexPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}
	slog.Info("Search index ready", "path", cfg.SearchIndexPath)

	notionClient := notion.NewClient(cfg.NotionBaseURL, cfg.NotionToken, cfg.NotionVersion, cfg.HTTPTimeout)
	reconciler := reconcile.New(db, notionClient, fetcher, reconcile.Config{
		Token:         cfg.NotionToken,
		LensSourceID:  cfg.NotionLensesDBID,
		EntrySourceID: cfg.NotionEntriesDBID,
	})

	lensRepo := storage.NewLensRepo(db)
	entryRepo := storage.NewEntryRepo(db)

	return &app{
		db:      db,
		index:   index,
		media:   store,
		sync:    service.NewSyncService(reconciler, entryRepo, index, cfg.SyncTimeout),
		content: service.NewContentService(lensRepo, entryRepo, index),
	}, nil
}

// newMediaStore returns the configured backend. Both backends are served by
// the API under MEDIA_URL_PREFIX.
func newMediaStore(ctx context.Context, cfg *config.Config) (media.Backend, error) {
	switch cfg.MediaBackend {
	case config.MediaBackendS3:
		client, err := media.NewS3Client(ctx, media.S3Config{
			Bucket:    cfg.MediaS3Bucket,
			Region:    cfg.MediaS3Region,
			Endpoint:  cfg.MediaS3Endpoint,
			AccessKey: cfg.MediaS3AccessKey,
			SecretKey: cfg.MediaS3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return media.NewS3Store(client, cfg.MediaS3Bucket, cfg.MediaS3KeyPrefix), nil
	default:
		store, err := media.NewLocalStore(cfg.MediaDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create media directory: %w", err)
		}
		return store, nil
	}
}

func (a *app) Close() error {
	return errors.Join(a.index.Close(), a.db.Close())
}
