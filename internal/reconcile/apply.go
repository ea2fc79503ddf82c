package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lensgate/internal/contextutil"
	"lensgate/internal/storage"
)

// apply writes one decoded batch inside tx.
func (r *Reconciler) apply(
	ctx context.Context,
	tx storage.DBTX,
	lenses []storage.Lens,
	entries []syncedEntry,
	incremental bool,
	now time.Time,
) error {
	logger := contextutil.LoggerFromContext(ctx)
	lensRepo := storage.NewLensRepo(tx)
	entryRepo := storage.NewEntryRepo(tx)

	lensIDs := make(map[string]string, len(lenses))
	for i := range lenses {
		lens := &lenses[i]
		if err := lensRepo.Upsert(ctx, lens, now); err != nil {
			return err
		}
		lensIDs[lens.NotionID] = lens.ID
	}

	for i := range entries {
		entry := &entries[i]
		if err := entryRepo.Upsert(ctx, &entry.Entry, now); err != nil {
			return err
		}

		linked := make([]string, 0, len(entry.LensNotionIDs))
		for _, notionID := range entry.LensNotionIDs {
			id, err := resolveLens(ctx, lensRepo, lensIDs, notionID)
			if err != nil {
				return err
			}
			if id == "" {
				logger.DebugContext(ctx, "dropping unresolved lens relation", "entry", entry.Slug, "lens_notion_id", notionID)
				continue
			}
			linked = append(linked, id)
		}
		if err := entryRepo.ReplaceLenses(ctx, entry.ID, linked); err != nil {
			return err
		}
	}

	if !incremental {
		keepLenses := make([]string, 0, len(lenses))
		for _, l := range lenses {
			keepLenses = append(keepLenses, l.NotionID)
		}
		keepEntries := make([]string, 0, len(entries))
		for _, e := range entries {
			keepEntries = append(keepEntries, e.NotionID)
		}

		demotedLenses, err := lensRepo.DemoteMissing(ctx, keepLenses)
		if err != nil {
			return err
		}
		demotedEntries, err := entryRepo.DemoteMissing(ctx, keepEntries)
		if err != nil {
			return err
		}
		if demotedLenses > 0 || demotedEntries > 0 {
			logger.InfoContext(ctx, "demoted content missing upstream", "lenses", demotedLenses, "entries", demotedEntries)
		}
	}

	return storage.NewSyncStateRepo(tx).SetLastSyncAt(ctx, now)
}

// resolveLens maps an external lens id to a local id, first from this batch and
// then from rows persisted by earlier passes. Found ids are cached in known.
// It returns "" when the lens is unknown.
func resolveLens(ctx context.Context, repo *storage.LensRepo, known map[string]string, notionID string) (string, error) {
	if id, ok := known[notionID]; ok {
		return id, nil
	}
	id, err := repo.FindIDByNotionID(ctx, notionID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve lens %s: %w", notionID, err)
	}
	known[notionID] = id
	return id, nil
}
