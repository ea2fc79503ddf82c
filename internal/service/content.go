package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_content.go -package=mocks lensgate/internal/service Searcher,ContentService

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"lensgate/internal/contextutil"
	"lensgate/internal/search"
	"lensgate/internal/storage"
)

// Searcher queries the full-text index.
type Searcher interface {
	Search(ctx context.Context, q string, limit int) ([]search.Result, error)
}

// LensView is the public form of a lens.
type LensView struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Statement string `json:"statement"`
	Intro     string `json:"intro"`
	IntroHTML string `json:"introHtml,omitempty"`
	CoverURL  string `json:"coverUrl,omitempty"`
	Order     int    `json:"order"`
}

// EntryView is the public form of an entry.
type EntryView struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	CoverURL  string    `json:"coverUrl,omitempty"`
	Images    []string  `json:"images"`
	Takeaways []string  `json:"takeaways"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LensDetail is a lens with its published entries.
type LensDetail struct {
	Lens    LensView    `json:"lens"`
	Entries []EntryView `json:"entries"`
}

// EntryDetail is an entry with the published lenses it belongs to.
type EntryDetail struct {
	Entry  EntryView  `json:"entry"`
	Lenses []LensView `json:"lenses"`
}

// ContentService serves published content.
type ContentService interface {
	ListLenses(ctx context.Context) ([]LensView, error)
	// GetLens returns ErrNotFound for unknown or unpublished slugs.
	GetLens(ctx context.Context, slug string) (LensDetail, error)
	// GetEntry returns ErrNotFound for unknown or unpublished slugs.
	GetEntry(ctx context.Context, slug string) (EntryDetail, error)
	// Search returns at most search.MaxResults entries matching q.
	Search(ctx context.Context, q string) ([]search.Result, error)
}

// contentService implements ContentService.
type contentService struct {
	lenses   storage.LensStore
	entries  storage.EntryStore
	searcher Searcher
	markdown goldmark.Markdown
}

// NewContentService creates a new ContentService. searcher may be nil, in which
// case Search returns no results.
func NewContentService(lenses storage.LensStore, entries storage.EntryStore, searcher Searcher) ContentService {
	return &contentService{
		lenses:   lenses,
		entries:  entries,
		searcher: searcher,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

func (s *contentService) ListLenses(ctx context.Context) ([]LensView, error) {
	lenses, err := s.lenses.ListPublished(ctx)
	if err != nil {
		return nil, WrapError(err, "failed to list lenses")
	}
	views := make([]LensView, 0, len(lenses))
	for _, l := range lenses {
		views = append(views, lensView(l))
	}
	return views, nil
}

func (s *contentService) GetLens(ctx context.Context, slug string) (LensDetail, error) {
	lens, err := s.lenses.GetPublishedBySlug(ctx, slug)
	if err != nil {
		return LensDetail{}, notFound(err)
	}
	entries, err := s.entries.ListPublishedByLens(ctx, lens.ID)
	if err != nil {
		return LensDetail{}, WrapError(err, "failed to list lens entries")
	}

	view := lensView(*lens)
	view.IntroHTML = s.render(ctx, lens.Intro)

	detail := LensDetail{Lens: view, Entries: make([]EntryView, 0, len(entries))}
	for _, e := range entries {
		detail.Entries = append(detail.Entries, entryView(e))
	}
	return detail, nil
}

func (s *contentService) GetEntry(ctx context.Context, slug string) (EntryDetail, error) {
	entry, err := s.entries.GetPublishedBySlug(ctx, slug)
	if err != nil {
		return EntryDetail{}, notFound(err)
	}
	lenses, err := s.lenses.ListPublishedByEntry(ctx, entry.ID)
	if err != nil {
		return EntryDetail{}, WrapError(err, "failed to list entry lenses")
	}

	detail := EntryDetail{Entry: entryView(*entry), Lenses: make([]LensView, 0, len(lenses))}
	for _, l := range lenses {
		detail.Lenses = append(detail.Lenses, lensView(l))
	}
	return detail, nil
}

func (s *contentService) Search(ctx context.Context, q string) ([]search.Result, error) {
	q = strings.TrimSpace(q)
	if q == "" || s.searcher == nil {
		return []search.Result{}, nil
	}
	results, err := s.searcher.Search(ctx, q, search.MaxResults)
	if err != nil {
		return nil, WrapError(err, "failed to search")
	}
	return results, nil
}

// render converts markdown to HTML. Raw HTML in the source is not passed through.
func (s *contentService) render(ctx context.Context, source string) string {
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(source), &buf); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to render markdown", "error", err)
		return ""
	}
	return buf.String()
}

func lensView(l storage.Lens) LensView {
	return LensView{
		Slug:      l.Slug,
		Title:     l.Title,
		Statement: l.Statement,
		Intro:     l.Intro,
		CoverURL:  l.CoverURL,
		Order:     l.Order,
	}
}

func entryView(e storage.Entry) EntryView {
	return EntryView{
		Slug:      e.Slug,
		Title:     e.Title,
		CoverURL:  e.CoverURL,
		Images:    e.Images,
		Takeaways: e.Takeaways,
		Tags:      e.Tags,
		UpdatedAt: e.UpdatedAt,
	}
}
