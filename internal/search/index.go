// Package search keeps a bleve full-text index of published entries.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"lensgate/internal/storage"
)

// MaxResults caps the number of hits returned by Search.
const MaxResults = 100

// Index wraps a Bleve search index
type Index struct {
	index bleve.Index
}

// Document is the indexed form of an entry.
type Document struct {
	Slug      string
	Title     string
	Tags      []string
	Takeaways string
}

// Result is one search hit.
type Result struct {
	ID    string  `json:"id"`
	Slug  string  `json:"slug"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Open opens the index at path, creating it if it does not exist.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

// OpenMem creates an in-memory index.
func OpenMem() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	english := bleve.NewTextFieldMapping()
	english.Analyzer = "en"

	stored := bleve.NewTextFieldMapping()
	stored.Index = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("Slug", stored)
	docMapping.AddFieldMappingsAt("Title", english)
	docMapping.AddFieldMappingsAt("Tags", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Takeaways", english)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Close closes the index
func (i *Index) Close() error {
	return i.index.Close()
}

// Count returns the number of documents in the index
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

// Rebuild makes the index contain exactly the given entries, keyed by entry id.
func (i *Index) Rebuild(ctx context.Context, entries []storage.Entry) error {
	keep := make(map[string]struct{}, len(entries))
	batch := i.index.NewBatch()
	for _, e := range entries {
		keep[e.ID] = struct{}{}
		doc := Document{
			Slug:      e.Slug,
			Title:     e.Title,
			Tags:      e.Tags,
			Takeaways: strings.Join(e.Takeaways, "\n"),
		}
		if err := batch.Index(e.ID, doc); err != nil {
			return fmt.Errorf("batch index %s: %w", e.ID, err)
		}
	}

	existing, err := i.allIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range existing {
		if _, ok := keep[id]; !ok {
			batch.Delete(id)
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (i *Index) allIDs(ctx context.Context) ([]string, error) {
	n, err := i.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(n), 0, false)
	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Search finds entries whose title, tags or takeaways match q. Title matches
// rank higher and tolerate one typo. Blank queries return no results.
func (i *Index) Search(ctx context.Context, q string, limit int) ([]Result, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []Result{}, nil
	}
	if limit <= 0 || limit > MaxResults {
		limit = MaxResults
	}

	title := bleve.NewMatchQuery(q)
	title.SetField("Title")
	title.SetBoost(3)

	fuzzyTitle := bleve.NewMatchQuery(q)
	fuzzyTitle.SetField("Title")
	fuzzyTitle.SetFuzziness(1)

	tags := bleve.NewMatchQuery(q)
	tags.SetField("Tags")
	tags.SetBoost(2)

	takeaways := bleve.NewMatchQuery(q)
	takeaways.SetField("Takeaways")

	disjunction := bleve.NewDisjunctionQuery([]query.Query{title, fuzzyTitle, tags, takeaways}...)

	req := bleve.NewSearchRequestOptions(disjunction, limit, 0, false)
	req.Fields = []string{"Slug", "Title"}

	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := Result{ID: hit.ID, Score: hit.Score}
		if slug, ok := hit.Fields["Slug"].(string); ok {
			r.Slug = slug
		}
		if t, ok := hit.Fields["Title"].(string); ok {
			r.Title = t
		}
		results = append(results, r)
	}
	return results, nil
}
