package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_lens_store.go -package=mocks lensgate/internal/storage LensStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// LensStore defines the read operations on published lenses.
type LensStore interface {
	// ListPublished returns published lenses ordered by order, then title.
	ListPublished(ctx context.Context) ([]Lens, error)
	// GetPublishedBySlug returns nil and ErrNotFound if no published lens has the slug.
	GetPublishedBySlug(ctx context.Context, slug string) (*Lens, error)
	// ListPublishedByEntry returns the published lenses an entry belongs to.
	ListPublishedByEntry(ctx context.Context, entryID string) ([]Lens, error)
}

// LensRepo provides methods for lens operations.
// It implements the LensStore interface.
type LensRepo struct {
	db DBTX
}

// NewLensRepo creates a new LensRepo bound to a database or transaction.
func NewLensRepo(db DBTX) *LensRepo {
	return &LensRepo{db: db}
}

const lensColumns = "id, notion_id, slug, title, statement, intro, cover_url, order_int, status, created_at, updated_at"

// FindIDByNotionID returns the local id of the lens with the given external id.
// Returns "" and ErrNotFound if no such lens exists.
func (r *LensRepo) FindIDByNotionID(ctx context.Context, notionID string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, "SELECT id FROM lenses WHERE notion_id = ? LIMIT 1", notionID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query lens id: %w", err)
	}
	return id, nil
}

// Upsert inserts a lens or updates the one sharing its NotionID.
// Existing rows keep their id and created_at; new rows get a fresh UUID.
// lens.ID, CreatedAt and UpdatedAt are set on return.
func (r *LensRepo) Upsert(ctx context.Context, lens *Lens, now time.Time) error {
	existingID, err := r.FindIDByNotionID(ctx, lens.NotionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to check existing lens: %w", err)
	}

	ts := formatTime(now)
	if existingID != "" {
		lens.ID = existingID
		_, err = r.db.ExecContext(ctx,
			`UPDATE lenses SET slug = ?, title = ?, statement = ?, intro = ?, cover_url = ?,
			 order_int = ?, status = ?, updated_at = ? WHERE id = ?`,
			lens.Slug, lens.Title, lens.Statement, lens.Intro, nullString(lens.CoverURL),
			lens.Order, string(lens.Status), ts, lens.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update lens %s: %w", lens.Slug, err)
		}
		lens.UpdatedAt = now.UTC()
		return nil
	}

	lens.ID = uuid.New().String()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO lenses (`+lensColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lens.ID, lens.NotionID, lens.Slug, lens.Title, lens.Statement, lens.Intro,
		nullString(lens.CoverURL), lens.Order, string(lens.Status), ts, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lens %s: %w", lens.Slug, err)
	}
	lens.CreatedAt = now.UTC()
	lens.UpdatedAt = now.UTC()
	return nil
}

// DemoteMissing sets every synced lens whose external id is not in keep to draft.
// An empty keep demotes all synced lenses. Rows without an external id are untouched.
func (r *LensRepo) DemoteMissing(ctx context.Context, keep []string) (int64, error) {
	return demoteMissing(ctx, r.db, "lenses", keep)
}

// ListPublished returns published lenses ordered by order, then title.
func (r *LensRepo) ListPublished(ctx context.Context) ([]Lens, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+lensColumns+" FROM lenses WHERE status = 'published' ORDER BY order_int ASC, title ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query lenses: %w", err)
	}
	return scanLenses(rows)
}

// GetPublishedBySlug returns the published lens with the given slug.
func (r *LensRepo) GetPublishedBySlug(ctx context.Context, slug string) (*Lens, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+lensColumns+" FROM lenses WHERE slug = ? AND status = 'published'", slug,
	)
	lens, err := scanLens(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query lens: %w", err)
	}
	return lens, nil
}

// ListPublishedByEntry returns the published lenses linked to an entry.
func (r *LensRepo) ListPublishedByEntry(ctx context.Context, entryID string) ([]Lens, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT l.id, l.notion_id, l.slug, l.title, l.statement, l.intro, l.cover_url,
		        l.order_int, l.status, l.created_at, l.updated_at
		 FROM lenses l
		 JOIN lens_entries le ON le.lens_id = l.id
		 WHERE le.entry_id = ? AND l.status = 'published'
		 ORDER BY l.order_int ASC, l.title ASC`,
		entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query entry lenses: %w", err)
	}
	return scanLenses(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLens(row rowScanner) (*Lens, error) {
	var (
		lens       Lens
		notionID   sql.NullString
		coverURL   sql.NullString
		status     string
		createdStr string
		updatedStr string
	)
	err := row.Scan(&lens.ID, &notionID, &lens.Slug, &lens.Title, &lens.Statement, &lens.Intro,
		&coverURL, &lens.Order, &status, &createdStr, &updatedStr)
	if err != nil {
		return nil, err
	}
	lens.NotionID = notionID.String
	lens.CoverURL = coverURL.String
	lens.Status = Status(status)

	if lens.CreatedAt, err = parseTime(createdStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	if lens.UpdatedAt, err = parseTime(updatedStr); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at timestamp: %w", err)
	}
	return &lens, nil
}

func scanLenses(rows *sql.Rows) ([]Lens, error) {
	defer func() {
		_ = rows.Close()
	}()

	lenses := []Lens{}
	for rows.Next() {
		lens, err := scanLens(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lens: %w", err)
		}
		lenses = append(lenses, *lens)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lenses: %w", err)
	}
	return lenses, nil
}

func demoteMissing(ctx context.Context, db DBTX, table string, keep []string) (int64, error) {
	query := fmt.Sprintf("UPDATE %s SET status = 'draft' WHERE notion_id IS NOT NULL AND status != 'draft'", table)
	args := make([]any, 0, len(keep))
	if len(keep) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keep)), ", ")
		query += " AND notion_id NOT IN (" + placeholders + ")"
		for _, id := range keep {
			args = append(args, id)
		}
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to demote missing %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count demoted %s: %w", table, err)
	}
	return n, nil
}
