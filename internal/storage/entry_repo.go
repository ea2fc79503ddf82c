package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_entry_store.go -package=mocks lensgate/internal/storage EntryStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntryStore defines the read operations on published entries.
type EntryStore interface {
	// ListPublished returns all published entries, most recently updated first.
	ListPublished(ctx context.Context) ([]Entry, error)
	// ListPublishedByLens returns the published entries of a lens, most recently updated first.
	ListPublishedByLens(ctx context.Context, lensID string) ([]Entry, error)
	// GetPublishedBySlug returns nil and ErrNotFound if no published entry has the slug.
	GetPublishedBySlug(ctx context.Context, slug string) (*Entry, error)
}

// EntryRepo provides methods for entry and lens association operations.
// It implements the EntryStore interface.
type EntryRepo struct {
	db DBTX
}

// NewEntryRepo creates a new EntryRepo bound to a database or transaction.
func NewEntryRepo(db DBTX) *EntryRepo {
	return &EntryRepo{db: db}
}

const entryColumns = "id, notion_id, slug, title, cover_url, images_json, takeaways_json, tags_json, status, created_at, updated_at"

// FindIDByNotionID returns the local id of the entry with the given external id.
// Returns "" and ErrNotFound if no such entry exists.
func (r *EntryRepo) FindIDByNotionID(ctx context.Context, notionID string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, "SELECT id FROM entries WHERE notion_id = ? LIMIT 1", notionID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query entry id: %w", err)
	}
	return id, nil
}

// Upsert inserts an entry or updates the one sharing its NotionID.
// Existing rows keep their id and created_at; new rows get a fresh UUID.
func (r *EntryRepo) Upsert(ctx context.Context, entry *Entry, now time.Time) error {
	existingID, err := r.FindIDByNotionID(ctx, entry.NotionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to check existing entry: %w", err)
	}

	ts := formatTime(now)
	images := encodeStringArray(entry.Images)
	takeaways := encodeStringArray(entry.Takeaways)
	tags := encodeStringArray(entry.Tags)

	if existingID != "" {
		entry.ID = existingID
		_, err = r.db.ExecContext(ctx,
			`UPDATE entries SET slug = ?, title = ?, cover_url = ?, images_json = ?, takeaways_json = ?,
			 tags_json = ?, status = ?, updated_at = ? WHERE id = ?`,
			entry.Slug, entry.Title, nullString(entry.CoverURL), images, takeaways, tags,
			string(entry.Status), ts, entry.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update entry %s: %w", entry.Slug, err)
		}
		entry.UpdatedAt = now.UTC()
		return nil
	}

	entry.ID = uuid.New().String()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO entries (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.NotionID, entry.Slug, entry.Title, nullString(entry.CoverURL),
		images, takeaways, tags, string(entry.Status), ts, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry %s: %w", entry.Slug, err)
	}
	entry.CreatedAt = now.UTC()
	entry.UpdatedAt = now.UTC()
	return nil
}

// ReplaceLenses makes lensIDs the exact set of lenses linked to the entry.
// Duplicate ids are linked once.
func (r *EntryRepo) ReplaceLenses(ctx context.Context, entryID string, lensIDs []string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM lens_entries WHERE entry_id = ?", entryID); err != nil {
		return fmt.Errorf("failed to clear entry lenses: %w", err)
	}
	for _, lensID := range lensIDs {
		_, err := r.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO lens_entries (lens_id, entry_id) VALUES (?, ?)",
			lensID, entryID,
		)
		if err != nil {
			return fmt.Errorf("failed to link entry to lens %s: %w", lensID, err)
		}
	}
	return nil
}

// LensIDs returns the ids of all lenses linked to an entry, regardless of status.
func (r *EntryRepo) LensIDs(ctx context.Context, entryID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT lens_id FROM lens_entries WHERE entry_id = ? ORDER BY lens_id", entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query entry lenses: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan lens id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DemoteMissing sets every synced entry whose external id is not in keep to draft.
func (r *EntryRepo) DemoteMissing(ctx context.Context, keep []string) (int64, error) {
	return demoteMissing(ctx, r.db, "entries", keep)
}

// ListPublished returns all published entries, most recently updated first.
func (r *EntryRepo) ListPublished(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE status = 'published' ORDER BY updated_at DESC, slug ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	return scanEntries(rows)
}

// ListPublishedByLens returns the published entries of a lens, most recently updated first.
func (r *EntryRepo) ListPublishedByLens(ctx context.Context, lensID string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.notion_id, e.slug, e.title, e.cover_url, e.images_json, e.takeaways_json,
		        e.tags_json, e.status, e.created_at, e.updated_at
		 FROM entries e
		 JOIN lens_entries le ON le.entry_id = e.id
		 WHERE le.lens_id = ? AND e.status = 'published'
		 ORDER BY e.updated_at DESC, e.slug ASC`,
		lensID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query lens entries: %w", err)
	}
	return scanEntries(rows)
}

// GetPublishedBySlug returns the published entry with the given slug.
func (r *EntryRepo) GetPublishedBySlug(ctx context.Context, slug string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE slug = ? AND status = 'published'", slug,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query entry: %w", err)
	}
	return entry, nil
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry                   Entry
		notionID, coverURL      sql.NullString
		images, takeaways, tags string
		status                  string
		createdStr, updatedStr  string
	)
	err := row.Scan(&entry.ID, &notionID, &entry.Slug, &entry.Title, &coverURL,
		&images, &takeaways, &tags, &status, &createdStr, &updatedStr)
	if err != nil {
		return nil, err
	}
	entry.NotionID = notionID.String
	entry.CoverURL = coverURL.String
	entry.Images = decodeStringArray(images)
	entry.Takeaways = decodeStringArray(takeaways)
	entry.Tags = decodeStringArray(tags)
	entry.Status = Status(status)

	if entry.CreatedAt, err = parseTime(createdStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	if entry.UpdatedAt, err = parseTime(updatedStr); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at timestamp: %w", err)
	}
	return &entry, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer func() {
		_ = rows.Close()
	}()

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}
