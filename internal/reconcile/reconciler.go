// Package reconcile pulls lenses and entries from the remote content API and
// applies them to the local store in a single transaction.
//
// A pass is full when no watermark exists and incremental otherwise. Only full
// passes demote rows that disappeared upstream, because a changed-since query
// cannot observe deletions.
package reconcile

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_reconcile.go -package=mocks lensgate/internal/reconcile PageSource,MediaResolver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"lensgate/internal/contextutil"
	"lensgate/internal/notion"
	"lensgate/internal/storage"
)

// ErrMissingConfig is returned before any I/O when a required setting is empty.
var ErrMissingConfig = errors.New("missing_config")

// defaultMediaWorkers bounds concurrent record decoding (and thus media downloads).
const defaultMediaWorkers = 4

// PageSource queries one remote collection for pages changed since a time.
type PageSource interface {
	QueryChangedPages(ctx context.Context, sourceID string, since *time.Time) ([]notion.Page, error)
}

// MediaResolver turns a remote media URL into a locally served reference.
type MediaResolver interface {
	Materialize(ctx context.Context, rawURL string) (string, error)
}

// Config identifies the remote collections to reconcile.
type Config struct {
	Token         string
	LensSourceID  string
	EntrySourceID string
}

func (c Config) validate() error {
	switch {
	case c.Token == "":
		return fmt.Errorf("%w: notion token", ErrMissingConfig)
	case c.LensSourceID == "":
		return fmt.Errorf("%w: lenses data source id", ErrMissingConfig)
	case c.EntrySourceID == "":
		return fmt.Errorf("%w: entries data source id", ErrMissingConfig)
	}
	return nil
}

// Summary describes a committed pass.
type Summary struct {
	OK             bool       `json:"ok"`
	Lenses         int        `json:"lenses"`
	Entries        int        `json:"entries"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	Incremental    bool       `json:"incremental"`
	PreviousSyncAt *time.Time `json:"previousSyncAt"`
}

// Reconciler synchronizes remote content into the local store.
// Concurrent calls to Synchronize serialize on the store's write lock.
type Reconciler struct {
	db      *sql.DB
	source  PageSource
	media   MediaResolver
	cfg     Config
	workers int

	// Now returns the current time. Tests replace it.
	Now func() time.Time
}

// New creates a Reconciler over an already migrated database.
func New(db *sql.DB, source PageSource, media MediaResolver, cfg Config) *Reconciler {
	return &Reconciler{
		db:      db,
		source:  source,
		media:   media,
		cfg:     cfg,
		workers: defaultMediaWorkers,
		Now:     time.Now,
	}
}

// Synchronize runs one reconciliation pass.
func (r *Reconciler) Synchronize(ctx context.Context) (Summary, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := r.cfg.validate(); err != nil {
		return Summary{}, err
	}

	previous, err := storage.NewSyncStateRepo(r.db).LastSyncAt(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read watermark: %w", err)
	}
	incremental := previous != nil
	started := r.watermark(previous)

	logger.InfoContext(ctx, "sync started", "incremental", incremental, "since", previous)

	lensPages, entryPages, err := r.fetch(ctx, previous)
	if err != nil {
		return Summary{}, err
	}

	lenses, err := r.decodeLenses(ctx, lensPages)
	if err != nil {
		return Summary{}, err
	}
	entries, err := r.decodeEntries(ctx, entryPages)
	if err != nil {
		return Summary{}, err
	}

	err = storage.WithTx(ctx, r.db, func(ctx context.Context, tx storage.DBTX) error {
		return r.apply(ctx, tx, lenses, entries, incremental, started)
	})
	if err != nil {
		logger.ErrorContext(ctx, "sync failed", "error", err)
		return Summary{}, fmt.Errorf("failed to apply sync: %w", err)
	}

	logger.InfoContext(ctx, "sync committed",
		"lenses", len(lenses),
		"entries", len(entries),
		"incremental", incremental,
		"updated_at", started,
	)

	return Summary{
		OK:             true,
		Lenses:         len(lenses),
		Entries:        len(entries),
		UpdatedAt:      started,
		Incremental:    incremental,
		PreviousSyncAt: previous,
	}, nil
}

// watermark returns the time recorded for this pass. It is captured before
// fetching and always lies strictly after the previous watermark.
func (r *Reconciler) watermark(previous *time.Time) time.Time {
	now := r.Now().UTC()
	if previous != nil && !now.After(*previous) {
		now = previous.Add(time.Millisecond).UTC()
	}
	return now
}

func (r *Reconciler) fetch(ctx context.Context, since *time.Time) ([]notion.Page, []notion.Page, error) {
	var lensPages, entryPages []notion.Page

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pages, err := r.source.QueryChangedPages(gctx, r.cfg.LensSourceID, since)
		if err != nil {
			return fmt.Errorf("failed to fetch lenses: %w", err)
		}
		lensPages = pages
		return nil
	})
	g.Go(func() error {
		pages, err := r.source.QueryChangedPages(gctx, r.cfg.EntrySourceID, since)
		if err != nil {
			return fmt.Errorf("failed to fetch entries: %w", err)
		}
		entryPages = pages
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return lensPages, entryPages, nil
}

// materialize resolves one media URL, keeping the remote URL when the download fails.
func (r *Reconciler) materialize(ctx context.Context, logger *slog.Logger, rawURL string) string {
	if rawURL == "" {
		return ""
	}
	local, err := r.media.Materialize(ctx, rawURL)
	if err != nil {
		logger.WarnContext(ctx, "failed to download media, keeping remote url", "url", rawURL, "error", err)
		return rawURL
	}
	return local
}
