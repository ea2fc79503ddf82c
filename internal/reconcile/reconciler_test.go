package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"lensgate/internal/media"
	"lensgate/internal/notion"
	"lensgate/internal/reconcile/mocks"
	"lensgate/internal/storage"
)

const (
	lensSource  = "lens-db"
	entrySource = "entry-db"
)

var (
	testCfg   = Config{Token: "secret", LensSourceID: lensSource, EntrySourceID: entrySource}
	firstRun  = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	secondRun = firstRun.Add(time.Hour)
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(context.Background(), db); err != nil {
		t.Fatalf("storage.Migrate() error = %v", err)
	}
	return db
}

func newTestReconciler(db *sql.DB, source PageSource, resolver MediaResolver, now time.Time) *Reconciler {
	r := New(db, source, resolver, testCfg)
	r.Now = func() time.Time { return now }
	return r
}

func richText(s string) notion.Property {
	return notion.Property{Kind: notion.KindRichText, Text: []notion.RichText{{PlainText: s}}}
}

func title(s string) notion.Property {
	return notion.Property{Kind: notion.KindTitle, Text: []notion.RichText{{PlainText: s}}}
}

func status(s string) notion.Property {
	return notion.Property{Kind: notion.KindStatus, Option: &notion.Option{Name: s}}
}

func files(urls ...string) notion.Property {
	p := notion.Property{Kind: notion.KindFiles}
	for _, u := range urls {
		p.Files = append(p.Files, notion.File{Type: "external", External: &notion.FileURL{URL: u}})
	}
	return p
}

func relation(ids ...string) notion.Property {
	p := notion.Property{Kind: notion.KindRelation}
	for _, id := range ids {
		p.Relation = append(p.Relation, notion.Relation{ID: id})
	}
	return p
}

func lensPage(id, slug, state string) notion.Page {
	return notion.Page{ID: id, Properties: notion.Properties{
		"Slug":   richText(slug),
		"Title":  title("Lens " + slug),
		"Status": status(state),
	}}
}

func entryPage(id, slug, state string, lensIDs ...string) notion.Page {
	return notion.Page{ID: id, Properties: notion.Properties{
		"Slug":   richText(slug),
		"Name":   title("Entry " + slug),
		"Status": status(state),
		"Lenses": relation(lensIDs...),
	}}
}

func expectPages(source *mocks.MockPageSource, lenses, entries []notion.Page) {
	source.EXPECT().QueryChangedPages(gomock.Any(), lensSource, gomock.Any()).Return(lenses, nil)
	source.EXPECT().QueryChangedPages(gomock.Any(), entrySource, gomock.Any()).Return(entries, nil)
}

func count(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count query %q error = %v", query, err)
	}
	return n
}

func statusOf(t *testing.T, db *sql.DB, table, notionID string) string {
	t.Helper()
	var s string
	if err := db.QueryRow("SELECT status FROM "+table+" WHERE notion_id = ?", notionID).Scan(&s); err != nil {
		t.Fatalf("status lookup for %s error = %v", notionID, err)
	}
	return s
}

func TestSynchronize_MissingConfig(t *testing.T) {
	ctrl := gomock.NewController(t)

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "no token", cfg: Config{LensSourceID: lensSource, EntrySourceID: entrySource}},
		{name: "no lenses source", cfg: Config{Token: "t", EntrySourceID: entrySource}},
		{name: "no entries source", cfg: Config{Token: "t", LensSourceID: lensSource}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No expectations: any remote call or database access fails the test.
			r := New(nil, mocks.NewMockPageSource(ctrl), mocks.NewMockMediaResolver(ctrl), tt.cfg)

			_, err := r.Synchronize(context.Background())
			if !errors.Is(err, ErrMissingConfig) {
				t.Fatalf("Synchronize() error = %v, want ErrMissingConfig", err)
			}
		})
	}
}

func TestSynchronize_FullSyncPersistsBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := newTestDB(t)
	source := mocks.NewMockPageSource(ctrl)
	resolver := mocks.NewMockMediaResolver(ctrl)

	lens := lensPage("L1", "calm", "Published")
	lens.Properties["Cover"] = files("https://files.example.com/cover.png?sig=1")
	lens.Properties["Statement"] = richText("  Be still.  ")
	lens.Properties["Intro"] = richText("\n**Hello**\n")
	lens.Properties["Order"] = notion.Property{Kind: notion.KindNumber, Number: ptr(3.0)}

	entry := entryPage("E1", "breathe", "published", "L1", "L-unknown", "L1")
	entry.Properties["Images"] = files("https://files.example.com/a.jpg", "https://files.example.com/b.jpg")
	entry.Properties["Takeaways"] = richText("one\r\n\n two ")
	entry.Properties["Tags"] = notion.Property{Kind: notion.KindMultiSelect, Options: []notion.Option{{Name: "focus"}, {Name: ""}}}

	source.EXPECT().
		QueryChangedPages(gomock.Any(), lensSource, gomock.Nil()).
		Return([]notion.Page{lens}, nil)
	source.EXPECT().
		QueryChangedPages(gomock.Any(), entrySource, gomock.Nil()).
		Return([]notion.Page{entry}, nil)

	resolver.EXPECT().Materialize(gomock.Any(), "https://files.example.com/cover.png?sig=1").Return("/images/cover.png", nil)
	gomock.InOrder(
		resolver.EXPECT().Materialize(gomock.Any(), "https://files.example.com/a.jpg").Return("/images/a.jpg", nil),
		resolver.EXPECT().Materialize(gomock.Any(), "https://files.example.com/b.jpg").Return("/images/b.jpg", nil),
	)

	summary, err := newTestReconciler(db, source, resolver, firstRun).Synchronize(context.Background())
	if err != nil {
		t.Fatalf("Synchronize() error = %v", err)
	}

	if !summary.OK || summary.Lenses != 1 || summary.Entries != 1 {
		t.Errorf("summary = %+v, want ok with 1 lens and 1 entry", summary)
	}
	if summary.Incremental || summary.PreviousSyncAt != nil {
		t.Errorf("summary = %+v, want full sync without previous watermark", summary)
	}
	if !summary.UpdatedAt.Equal(firstRun) {
		t.Errorf("UpdatedAt = %v, want %v", summary.UpdatedAt, firstRun)
	}

	ctx := context.Background()
	gotLens, err := storage.NewLensRepo(db).GetPublishedBySlug(ctx, "calm")
	if err != nil {
		t.Fatalf("GetPublishedBySlug() error = %v", err)
	}
	if gotLens.Title != "Lens calm" || gotLens.Statement != "Be still." || gotLens.Intro != "**Hello**" {
		t.Errorf("lens fields = %+v", gotLens)
	}
	if gotLens.CoverURL != "/images/cover.png" || gotLens.Order != 3 {
		t.Errorf("lens cover/order = %q/%d", gotLens.CoverURL, gotLens.Order)
	}

	gotEntry, err := storage.NewEntryRepo(db).GetPublishedBySlug(ctx, "breathe")
	if err != nil {
		t.Fatalf("GetPublishedBySlug() error = %v", err)
	}
	if gotEntry.Title != "Entry breathe" {
		t.Errorf("entry title = %q", gotEntry.Title)
	}
	if len(gotEntry.Images) != 2 || gotEntry.Images[0] != "/images/a.jpg" || gotEntry.Images[1] != "/images/b.jpg" {
		t.Errorf("entry images = %v", gotEntry.Images)
	}
	if len(gotEntry.Takeaways) != 2 || gotEntry.Takeaways[0] != "one" || gotEntry.Takeaways[1] != "two" {
		t.Errorf("entry takeaways = %v", gotEntry.Takeaways)
	}
	if len(gotEntry.Tags) != 1 || gotEntry.Tags[0] != "focus" {
		t.Errorf("entry tags = %v", gotEntry.Tags)
	}

	lensIDs, err := storage.NewEntryRepo(db).LensIDs(ctx, gotEntry.ID)
	if err != nil {
		t.Fatalf("LensIDs() error = %v", err)
	}
	if len(lensIDs) != 1 || lensIDs[0] != gotLens.ID {
		t.Errorf("entry lenses = %v, want [%s]", lensIDs, gotLens.ID)
	}

	watermark, err := storage.NewSyncStateRepo(db).LastSyncAt(ctx)
	if err != nil || watermark == nil || !watermark.Equal(firstRun) {
		t.Errorf("watermark = %v (err %v), want %v", watermark, err, firstRun)
	}
}

func TestSynchronize_EmptySlugExcluded(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := newTestDB(t)
	source := mocks.NewMockPageSource(ctrl)

	noSlugLens := lensPage("L2", "   ", "published")
	noSlugEntry := entryPage("E2", "", "published")
	expectPages(source,
		[]notion.Page{lensPage("L1", "calm", "published"), noSlugLens},
		[]notion.Page{entryPage("E1", "breathe", "published"), noSlugEntry},
	)

	summary, err := newTestReconciler(db, source, mocks.NewMockMediaResolver(ctrl), firstRun).Synchronize(context.Background())
	if err != nil {
		t.Fatalf("Synchronize() error = %v", err)
	}
	if summary.Lenses != 1 || summary.Entries != 1 {
		t.Errorf("summary counts = %d/%d, want 1/1", summary.Lenses, summary.Entries)
	}
	if n := count(t, db, "SELECT COUNT(*) FROM lenses"); n != 1 {
		t.Errorf("lenses rows = %d, want 1", n)
	}
	if n := count(t, db, "SELECT COUNT(*) FROM entries"); n != 1 {
		t.Errorf("entries rows = %d, want 1", n)
	}
}

func TestSynchronize_DemotesOnlyOnFullSync(t *testing.T) {
	tests := []struct {
		name        string
		watermark   *time.Time
		wantDemoted bool
	}{
		{name: "full sync demotes missing rows", watermark: nil, wantDemoted: true},
		{name: "incremental sync leaves missing rows", watermark: &firstRun, wantDemoted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			db := newTestDB(t)
			ctx := context.Background()

			for _, l := range []*storage.Lens{
				{NotionID: "L1", Slug: "kept", Title: "Kept", Status: storage.StatusPublished},
				{NotionID: "L-gone", Slug: "gone", Title: "Gone", Status: storage.StatusPublished},
			} {
				if err := storage.NewLensRepo(db).Upsert(ctx, l, firstRun); err != nil {
					t.Fatalf("seed lens error = %v", err)
				}
			}
			gone := &storage.Entry{NotionID: "E-gone", Slug: "gone", Title: "Gone", Status: storage.StatusPublished}
			if err := storage.NewEntryRepo(db).Upsert(ctx, gone, firstRun); err != nil {
				t.Fatalf("seed entry error = %v", err)
			}
			if _, err := db.Exec(`INSERT INTO entries (id, slug, title, status, created_at, updated_at)
				VALUES ('local', 'local', 'Local', 'published', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`); err != nil {
				t.Fatalf("seed local entry error = %v", err)
			}
			if tt.watermark != nil {
				if err := storage.NewSyncStateRepo(db).SetLastSyncAt(ctx, *tt.watermark); err != nil {
					t.Fatalf("seed watermark error = %v", err)
				}
			}

			source := mocks.NewMockPageSource(ctrl)
			var (
				mu     sync.Mutex
				sinces []*time.Time
			)
			source.EXPECT().
				QueryChangedPages(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, id string, since *time.Time) ([]notion.Page, error) {
					mu.Lock()
					sinces = append(sinces, since)
					mu.Unlock()
					if id == lensSource {
						return []notion.Page{lensPage("L1", "kept", "published")}, nil
					}
					return []notion.Page{}, nil
				}).
				Times(2)

			summary, err := newTestReconciler(db, source, mocks.NewMockMediaResolver(ctrl), secondRun).Synchronize(ctx)
			if err != nil {
				t.Fatalf("Synchronize() error = %v", err)
			}
			if summary.Incremental != (tt.watermark != nil) {
				t.Errorf("Incremental = %v", summary.Incremental)
			}
			for _, since := range sinces {
				if (since == nil) != (tt.watermark == nil) {
					t.Errorf("since = %v, want %v", since, tt.watermark)
				}
				if since != nil && !since.Equal(*tt.watermark) {
					t.Errorf("since = %v, want %v", since, tt.watermark)
				}
			}

			want := "published"
			if tt.wantDemoted {
				want = "draft"
			}
			if got := statusOf(t, db, "lenses", "L-gone"); got != want {
				t.Errorf("missing lens status = %q, want %q", got, want)
			}
			if got := statusOf(t, db, "entries", "E-gone"); got != want {
				t.Errorf("missing entry status = %q, want %q", got, want)
			}
			if got := statusOf(t, db, "lenses", "L1"); got != "published" {
				t.Errorf("synced lens status = %q, want published", got)
			}
			if n := count(t, db, "SELECT COUNT(*) FROM entries WHERE id = 'local' AND status = 'published'"); n != 1 {
				t.Error("entry without external id must never be demoted")
			}
		})
	}
}

func TestSynchronize_ResolvesPersistedLens(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := newTestDB(t)
	ctx := context.Background()

	persisted := &storage.Lens{NotionID: "L9", Slug: "old", Title: "Old", Status: storage.StatusPublished}
	if err := storage.NewLensRepo(db).Upsert(ctx, persisted, firstRun); err != nil {
		t.Fatalf("seed lens error = %v", err)
	}
	if err := storage.NewSyncStateRepo(db).SetLastSyncAt(ctx, firstRun); err != nil {
		t.Fatalf("seed watermark error = %v", err)
	}

	source := mocks.NewMockPageSource(ctrl)
	expectPages(source, []notion.Page{}, []notion.Page{entryPage("E1", "touched", "published", "L9")})

	summary, err := newTestReconciler(db, source, mocks.NewMockMediaResolver(ctrl), secondRun).Synchronize(ctx)
	if err != nil {
		t.Fatalf("Synchronize() error = %v", err)
	}
	if !summary.Incremental || summary.PreviousSyncAt == nil || !summary.PreviousSyncAt.Equal(firstRun) {
		t.Errorf("summary = %+v, want incremental from %v", summary, firstRun)
	}

	n := count(t, db, `SELECT COUNT(*) FROM lens_entries le JOIN entries e ON e.id = le.entry_id
		WHERE e.notion_id = 'E1' AND le.lens_id = ?`, persisted.ID)
	if n != 1 {
		t.Errorf("association rows = %d, want 1", n)
	}
}

func TestSynchronize_IdempotentRerun(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := newTestDB(t)
	source := mocks.NewMockPageSource(ctrl)

	lenses := []notion.Page{lensPage("L1", "calm", "published")}
	entries := []notion.Page{entryPage("E1", "breathe", "published", "L1")}
	expectPages(source, lenses, entries)
	expectPages(source, lenses, entries)

	// A clock that does not move must still advance the watermark.
	r := newTestReconciler(db, source, mocks.NewMockMediaResolver(ctrl), firstRun)

	first, err := r.Synchronize(context.Background())
	if err != nil {
		t.Fatalf("first Synchronize() error = %v", err)
	}
	second, err := r.Synchronize(context.Background())
	if err != nil {
		t.Fatalf("second Synchronize() error = %v", err)
	}

	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("watermark did not advance: %v then %v", first.UpdatedAt, second.UpdatedAt)
	}
	if !second.Incremental || second.PreviousSyncAt == nil || !second.PreviousSyncAt.Equal(first.UpdatedAt) {
		t.Errorf("second summary = %+v", second)
	}

	for table, want := range map[string]int{"lenses": 1, "entries": 1, "lens_entries": 1} {
		if n := count(t, db, "SELECT COUNT(*) FROM "+table); n != want {
			t.Errorf("%s rows = %d, want %d", table, n, want)
		}
	}
}

func TestSynchronize_MediaFailureKeepsRemoteURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := newTestDB(t)
	source := mocks.NewMockPageSource(ctrl)
	resolver := mocks.NewMockMediaResolver(ctrl)

	remote := "https://files.example.com/expired.png?sig=old"
	lens := lensPage("L1", "calm", "published")
	lens.Properties["Cover"] = files(remote)
	expectPages(source, []notion.Page{lens}, []notion.Page{})

	resolver.EXPECT().Materialize(gomock.Any(), remote).Return("", &media.DownloadError{URL: remote, Status: 403})

	if _, err := newTestReconciler(db, source, resolver, firstRun).Synchronize(context.Background()); err != nil {
		t.Fatalf("Synchronize() error = %v", err)
	}

	got, err := storage.NewLensRepo(db).GetPublishedBySlug(context.Background(), "calm")
	if err != nil {
		t.Fatalf("GetPublishedBySlug() error = %v", err)
	}
	if got.CoverURL != remote {
		t.Errorf("CoverURL = %q, want remote fallback %q", got.CoverURL, remote)
	}
}

func TestSynchronize_FetchErrorAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := newTestDB(t)
	source := mocks.NewMockPageSource(ctrl)

	upstream := &notion.APIError{Status: 503, Message: "unavailable"}
	source.EXPECT().QueryChangedPages(gomock.Any(), lensSource, gomock.Any()).Return([]notion.Page{}, nil).AnyTimes()
	source.EXPECT().QueryChangedPages(gomock.Any(), entrySource, gomock.Any()).Return(nil, upstream)

	_, err := newTestReconciler(db, source, mocks.NewMockMediaResolver(ctrl), firstRun).Synchronize(context.Background())
	if !errors.Is(err, notion.ErrServerError) {
		t.Fatalf("Synchronize() error = %v, want ErrServerError", err)
	}

	watermark, err := storage.NewSyncStateRepo(db).LastSyncAt(context.Background())
	if err != nil || watermark != nil {
		t.Errorf("watermark = %v (err %v), want nil", watermark, err)
	}
}

func TestSynchronize_TransactionFailureRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := newTestDB(t)
	source := mocks.NewMockPageSource(ctrl)

	// Two upstream entries claiming one slug violate the unique constraint mid-batch.
	expectPages(source,
		[]notion.Page{lensPage("L1", "calm", "published")},
		[]notion.Page{
			entryPage("E1", "dup", "published", "L1"),
			entryPage("E2", "dup", "published", "L1"),
		},
	)

	_, err := newTestReconciler(db, source, mocks.NewMockMediaResolver(ctrl), firstRun).Synchronize(context.Background())
	if err == nil {
		t.Fatal("Synchronize() expected error, got nil")
	}

	for _, table := range []string{"lenses", "entries", "lens_entries", "sync_state"} {
		if n := count(t, db, "SELECT COUNT(*) FROM "+table); n != 0 {
			t.Errorf("%s rows = %d after rollback, want 0", table, n)
		}
	}
}

func TestSynchronize_CancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := newTestDB(t)
	source := mocks.NewMockPageSource(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	source.EXPECT().
		QueryChangedPages(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ *time.Time) ([]notion.Page, error) {
			cancel()
			return nil, ctx.Err()
		}).
		MinTimes(1).MaxTimes(2)

	_, err := newTestReconciler(db, source, mocks.NewMockMediaResolver(ctrl), firstRun).Synchronize(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Synchronize() error = %v, want context.Canceled", err)
	}
}

func ptr[T any](v T) *T {
	return &v
}
