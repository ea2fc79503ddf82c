package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lensgate/internal/retry"
)

// filterTimeLayout is the ISO-8601 form the API expects, with millisecond precision.
const filterTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// TimestampFilter restricts a query by a page timestamp.
type TimestampFilter struct {
	Timestamp      string         `json:"timestamp"`
	LastEditedTime *DateCondition `json:"last_edited_time,omitempty"`
}

// DateCondition is a date comparison inside a filter.
type DateCondition struct {
	After string `json:"after"`
}

// LastEditedFilter builds the incremental filter for pages edited strictly after since.
// A nil since means a full scan and yields no filter.
func LastEditedFilter(since *time.Time) *TimestampFilter {
	if since == nil {
		return nil
	}
	return &TimestampFilter{
		Timestamp:      "last_edited_time",
		LastEditedTime: &DateCondition{After: since.UTC().Format(filterTimeLayout)},
	}
}

// Page is a query result row.
type Page struct {
	ID         string     `json:"id"`
	Properties Properties `json:"properties"`
}

// QueryChangedPages drives the cursor-paginated query for sourceID to completion and
// returns every usable page in remote order. Each request is retried per c.Retry.
// Rows without an id or a property bag are skipped.
func (c *Client) QueryChangedPages(ctx context.Context, sourceID string, since *time.Time) ([]Page, error) {
	payload := QueryRequest{
		PageSize:   PageSize,
		Filter:     LastEditedFilter(since),
		ResultType: "page",
	}

	var pages []Page
	for {
		resp, err := retry.Do(ctx, c.Retry, func(ctx context.Context) (*QueryResponse, error) {
			return c.QueryDataSource(ctx, sourceID, payload)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query data source %s: %w", sourceID, err)
		}

		pages = append(pages, decodePages(resp.Results)...)

		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		payload.StartCursor = *resp.NextCursor
	}

	return pages, nil
}

func decodePages(results []json.RawMessage) []Page {
	pages := make([]Page, 0, len(results))
	for _, raw := range results {
		var page Page
		if err := json.Unmarshal(raw, &page); err != nil {
			continue
		}
		if page.ID == "" || page.Properties == nil {
			continue
		}
		pages = append(pages, page)
	}
	return pages
}
