package reconcile

import (
	"context"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"lensgate/internal/contextutil"
	"lensgate/internal/notion"
	"lensgate/internal/storage"
)

// Property names in the remote collections.
const (
	propSlug      = "Slug"
	propTitle     = "Title"
	propName      = "Name"
	propStatement = "Statement"
	propIntro     = "Intro"
	propCover     = "Cover"
	propOrder     = "Order"
	propStatus    = "Status"
	propImages    = "Images"
	propTakeaways = "Takeaways"
	propTags      = "Tags"
	propLenses    = "Lenses"
)

const untitled = "Untitled"

// syncedEntry is a decoded entry plus the external ids of its lenses.
type syncedEntry struct {
	storage.Entry
	LensNotionIDs []string
}

func pageSlug(props notion.Properties) string {
	return strings.TrimSpace(props.Text(propSlug))
}

func pageTitle(props notion.Properties) string {
	if t := props.Title(propTitle); t != "" {
		return t
	}
	if t := props.Title(propName); t != "" {
		return t
	}
	return untitled
}

func firstURL(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

func (r *Reconciler) decodeLenses(ctx context.Context, pages []notion.Page) ([]storage.Lens, error) {
	logger := contextutil.LoggerFromContext(ctx)
	decoded := make([]*storage.Lens, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, page := range pages {
		props := page.Properties
		slug := pageSlug(props)
		if slug == "" {
			logger.DebugContext(ctx, "skipping lens without slug", "notion_id", page.ID)
			continue
		}
		g.Go(func() error {
			order, _ := props.Number(propOrder)
			status, _ := props.StatusOrSelect(propStatus)
			decoded[i] = &storage.Lens{
				NotionID:  page.ID,
				Slug:      slug,
				Title:     pageTitle(props),
				Statement: strings.TrimSpace(props.Text(propStatement)),
				Intro:     strings.TrimSpace(props.RichText(propIntro)),
				CoverURL:  r.materialize(gctx, logger, firstURL(props.FileURLs(propCover))),
				Order:     int(math.Round(order)),
				Status:    storage.NormalizeStatus(status),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lenses := make([]storage.Lens, 0, len(pages))
	for _, l := range decoded {
		if l != nil {
			lenses = append(lenses, *l)
		}
	}
	return lenses, nil
}

func (r *Reconciler) decodeEntries(ctx context.Context, pages []notion.Page) ([]syncedEntry, error) {
	logger := contextutil.LoggerFromContext(ctx)
	decoded := make([]*syncedEntry, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, page := range pages {
		props := page.Properties
		slug := pageSlug(props)
		if slug == "" {
			logger.DebugContext(ctx, "skipping entry without slug", "notion_id", page.ID)
			continue
		}
		g.Go(func() error {
			remote := props.FileURLs(propImages)
			images := make([]string, 0, len(remote))
			for _, u := range remote {
				images = append(images, r.materialize(gctx, logger, u))
			}
			status, _ := props.StatusOrSelect(propStatus)

			decoded[i] = &syncedEntry{
				Entry: storage.Entry{
					NotionID:  page.ID,
					Slug:      slug,
					Title:     pageTitle(props),
					CoverURL:  r.materialize(gctx, logger, firstURL(props.FileURLs(propCover))),
					Images:    images,
					Takeaways: notion.SplitLines(props.Text(propTakeaways)),
					Tags:      props.MultiSelect(propTags),
					Status:    storage.NormalizeStatus(status),
				},
				LensNotionIDs: props.RelationIDs(propLenses),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := make([]syncedEntry, 0, len(pages))
	for _, e := range decoded {
		if e != nil {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}
