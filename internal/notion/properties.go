package notion

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Kind is the type tag carried by every property value in a page's property bag.
type Kind string

const (
	KindTitle       Kind = "title"
	KindRichText    Kind = "rich_text"
	KindSelect      Kind = "select"
	KindStatus      Kind = "status"
	KindMultiSelect Kind = "multi_select"
	KindNumber      Kind = "number"
	KindFiles       Kind = "files"
	KindRelation    Kind = "relation"
)

// RichText is one segment of a title or rich_text run.
type RichText struct {
	PlainText string `json:"plain_text"`
}

// Option is a select, status or multi_select choice.
type Option struct {
	Name string `json:"name"`
}

// File is one entry of a files property. Type is "external" or "file" (uploaded).
type File struct {
	Type     string   `json:"type"`
	External *FileURL `json:"external,omitempty"`
	File     *FileURL `json:"file,omitempty"`
}

// FileURL holds the address of a file entry.
type FileURL struct {
	URL string `json:"url"`
}

// Relation references another page by id.
type Relation struct {
	ID string `json:"id"`
}

// Property is a decoded property value. Only the fields matching Kind are populated;
// a value whose payload does not match its tag keeps the tag and nothing else.
type Property struct {
	Kind     Kind
	Text     []RichText // title, rich_text
	Option   *Option    // select, status
	Options  []Option   // multi_select
	Number   *float64   // number
	Files    []File     // files
	Relation []Relation // relation
}

// UnmarshalJSON decodes a tagged property value. It never returns an error:
// malformed payloads leave the property at its neutral value.
func (p *Property) UnmarshalJSON(data []byte) error {
	*p = Property{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	var kind Kind
	if err := json.Unmarshal(fields["type"], &kind); err != nil {
		return nil
	}
	p.Kind = kind

	raw, ok := fields[string(kind)]
	if !ok {
		return nil
	}

	switch kind {
	case KindTitle, KindRichText:
		p.Text = decodeList[RichText](raw)
	case KindSelect, KindStatus:
		var opt *Option
		if err := json.Unmarshal(raw, &opt); err == nil {
			p.Option = opt
		}
	case KindMultiSelect:
		p.Options = decodeList[Option](raw)
	case KindNumber:
		var n *float64
		if err := json.Unmarshal(raw, &n); err == nil {
			p.Number = n
		}
	case KindFiles:
		p.Files = decodeList[File](raw)
	case KindRelation:
		p.Relation = decodeList[Relation](raw)
	}
	return nil
}

// decodeList decodes a JSON array element by element, dropping elements that
// do not match T. A non-array payload yields nil.
func decodeList[T any](raw json.RawMessage) []T {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Properties is a page's property bag keyed by property name.
type Properties map[string]Property

func (ps Properties) lookup(name string, kind Kind) (Property, bool) {
	p, ok := ps[name]
	if !ok || p.Kind != kind {
		return Property{}, false
	}
	return p, true
}

func plainText(segments []RichText) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.PlainText)
	}
	return b.String()
}

// Title returns the concatenated plain text of a title property, or "".
func (ps Properties) Title(name string) string {
	p, ok := ps.lookup(name, KindTitle)
	if !ok {
		return ""
	}
	return plainText(p.Text)
}

// RichText returns the concatenated plain text of a rich_text property, or "".
func (ps Properties) RichText(name string) string {
	p, ok := ps.lookup(name, KindRichText)
	if !ok {
		return ""
	}
	return plainText(p.Text)
}

// Text prefers rich_text content and falls back to title content, since the same
// logical field can be configured as either kind.
func (ps Properties) Text(name string) string {
	if s := ps.RichText(name); s != "" {
		return s
	}
	return ps.Title(name)
}

// Select returns the selected option name of a select property.
func (ps Properties) Select(name string) (string, bool) {
	return ps.option(name, KindSelect)
}

// StatusOrSelect reads a select property and falls back to a status property.
func (ps Properties) StatusOrSelect(name string) (string, bool) {
	if v, ok := ps.Select(name); ok {
		return v, true
	}
	return ps.option(name, KindStatus)
}

func (ps Properties) option(name string, kind Kind) (string, bool) {
	p, ok := ps.lookup(name, kind)
	if !ok || p.Option == nil || p.Option.Name == "" {
		return "", false
	}
	return p.Option.Name, true
}

// MultiSelect returns the selected option names, skipping empty names.
func (ps Properties) MultiSelect(name string) []string {
	p, ok := ps.lookup(name, KindMultiSelect)
	if !ok {
		return []string{}
	}
	names := make([]string, 0, len(p.Options))
	for _, o := range p.Options {
		if o.Name != "" {
			names = append(names, o.Name)
		}
	}
	return names
}

// Number returns the value of a number property.
func (ps Properties) Number(name string) (float64, bool) {
	p, ok := ps.lookup(name, KindNumber)
	if !ok || p.Number == nil {
		return 0, false
	}
	return *p.Number, true
}

// FileURLs returns the URLs of a files property in order. Entries that resolve
// to no URL are dropped.
func (ps Properties) FileURLs(name string) []string {
	p, ok := ps.lookup(name, KindFiles)
	if !ok {
		return []string{}
	}
	urls := make([]string, 0, len(p.Files))
	for _, f := range p.Files {
		var u string
		switch f.Type {
		case "external":
			if f.External != nil {
				u = f.External.URL
			}
		case "file":
			if f.File != nil {
				u = f.File.URL
			}
		}
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// RelationIDs returns the related page ids in order, skipping empty ids.
func (ps Properties) RelationIDs(name string) []string {
	p, ok := ps.lookup(name, KindRelation)
	if !ok {
		return []string{}
	}
	ids := make([]string, 0, len(p.Relation))
	for _, r := range p.Relation {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

var lineBreak = regexp.MustCompile(`\r?\n`)

// SplitLines splits multi-line text into trimmed, non-empty lines.
func SplitLines(text string) []string {
	lines := []string{}
	for _, line := range lineBreak.Split(text, -1) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
