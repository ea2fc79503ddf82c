package storage

import (
	"encoding/json"
	"strings"
	"time"
)

// Status is the publication state of a lens or entry.
type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
)

// NormalizeStatus maps a remote status name onto Status. Only a
// case-insensitive "published" publishes; anything else is a draft.
func NormalizeStatus(name string) Status {
	if strings.EqualFold(name, string(StatusPublished)) {
		return StatusPublished
	}
	return StatusDraft
}

// Lens is a curated theme grouping entries.
type Lens struct {
	ID        string // UUID
	NotionID  string // External id; empty for rows not owned by sync
	Slug      string
	Title     string
	Statement string
	Intro     string
	CoverURL  string // Empty when absent
	Order     int
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry is a single content item, linked to zero or more lenses.
type Entry struct {
	ID        string
	NotionID  string
	Slug      string
	Title     string
	CoverURL  string
	Images    []string
	Takeaways []string
	Tags      []string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// timeLayout is fixed width so text columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts RFC3339 timestamps and SQLite's CURRENT_TIMESTAMP format.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t.UTC(), nil
	}
	t, err2 := time.Parse("2006-01-02 15:04:05", s)
	if err2 != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func encodeStringArray(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// decodeStringArray reads a JSON array column. Malformed JSON or a non-array
// yields an empty slice; non-string elements are skipped.
func decodeStringArray(raw string) []string {
	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
