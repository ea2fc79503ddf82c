package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_sync.go -package=mocks lensgate/internal/service Synchronizer,Indexer,SyncService

import (
	"context"
	"sync"
	"time"

	"lensgate/internal/contextutil"
	"lensgate/internal/reconcile"
	"lensgate/internal/storage"
)

// Synchronizer runs one reconciliation pass.
type Synchronizer interface {
	Synchronize(ctx context.Context) (reconcile.Summary, error)
}

// Indexer replaces the search index contents.
type Indexer interface {
	Rebuild(ctx context.Context, entries []storage.Entry) error
}

// SyncService triggers content synchronization.
type SyncService interface {
	// Sync runs a pass and refreshes the search index. Only one pass runs at a
	// time; an overlapping call fails with ErrSyncInProgress.
	Sync(ctx context.Context) (reconcile.Summary, error)
}

// syncService implements SyncService.
type syncService struct {
	synchronizer Synchronizer
	entries      storage.EntryStore
	index        Indexer
	timeout      time.Duration
	mu           sync.Mutex
}

// NewSyncService creates a new SyncService. index may be nil to skip indexing.
// A positive timeout bounds each pass.
func NewSyncService(synchronizer Synchronizer, entries storage.EntryStore, index Indexer, timeout time.Duration) SyncService {
	return &syncService{
		synchronizer: synchronizer,
		entries:      entries,
		index:        index,
		timeout:      timeout,
	}
}

// Sync runs a pass detached from the caller's cancellation, so a dropped
// request does not abort a pass halfway.
func (s *syncService) Sync(ctx context.Context) (reconcile.Summary, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if !s.mu.TryLock() {
		logger.WarnContext(ctx, "sync already running")
		return reconcile.Summary{}, ErrSyncInProgress
	}
	defer s.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, s.timeout)
		defer cancel()
	}

	summary, err := s.synchronizer.Synchronize(runCtx)
	if err != nil {
		logger.ErrorContext(ctx, "sync failed", "error", err, "code", ErrorCode(err))
		return reconcile.Summary{}, WrapError(err, "sync failed")
	}

	s.reindex(runCtx)
	return summary, nil
}

// reindex refreshes the search index from committed data. Failures are logged;
// the index catches up on the next pass.
func (s *syncService) reindex(ctx context.Context) {
	if s.index == nil {
		return
	}
	logger := contextutil.LoggerFromContext(ctx)

	entries, err := s.entries.ListPublished(ctx)
	if err != nil {
		logger.WarnContext(ctx, "failed to load entries for search index", "error", err)
		return
	}
	if err := s.index.Rebuild(ctx, entries); err != nil {
		logger.WarnContext(ctx, "failed to rebuild search index", "error", err)
		return
	}
	logger.InfoContext(ctx, "search index rebuilt", "entries", len(entries))
}
