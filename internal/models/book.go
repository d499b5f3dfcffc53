// Package models defines the domain types for booknote.
package models

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Book is the metadata record a note is rendered from. Every value is a
// scalar, a sequence of scalars, or absent (zero value).
type Book struct {
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	PublishedDate string   `json:"publishDate,omitempty"`
	PageCount     int      `json:"totalPage,omitempty"`
	Description   string   `json:"description,omitempty"`
	ThumbnailURL  string   `json:"coverUrl,omitempty"`
	Link          string   `json:"link,omitempty"`
	PreviewLink   string   `json:"previewLink,omitempty"`
	ISBN10        string   `json:"isbn10,omitempty"`
	ISBN13        string   `json:"isbn13,omitempty"`
	Language      string   `json:"language,omitempty"`

	// Extra holds any other descriptive field of the source record.
	Extra map[string]any `json:"-"`
}

var knownKeys = map[string]struct{}{
	"title": {}, "subtitle": {}, "authors": {}, "categories": {}, "publisher": {},
	"publishDate": {}, "totalPage": {}, "description": {}, "coverUrl": {},
	"link": {}, "previewLink": {}, "isbn10": {}, "isbn13": {}, "language": {},
}

// fieldAliases maps alternative record keys onto the known key they fill.
// The known key wins when both are present.
var fieldAliases = map[string]string{
	"publishedDate": "publishDate",
	"pageCount":     "totalPage",
	"thumbnailUrl":  "coverUrl",
	"thumbnail":     "coverUrl",
}

// UnmarshalJSON decodes the known fields and keeps every other scalar or
// scalar-sequence field in Extra. Alias keys such as publishedDate fill the
// matching known field.
func (b *Book) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	folded := false
	for alias, key := range fieldAliases {
		v, ok := raw[alias]
		if !ok {
			continue
		}
		delete(raw, alias)
		folded = true
		if cur, ok := raw[key]; !ok || cur == nil || cur == "" {
			raw[key] = v
		}
	}
	if folded {
		var err error
		if data, err = json.Marshal(raw); err != nil {
			return err
		}
	}

	type plain Book
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	for k, v := range raw {
		if _, ok := knownKeys[k]; ok {
			continue
		}
		norm, ok := normalizeExtra(v)
		if !ok {
			return fmt.Errorf("field %q: nested objects are not supported", k)
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = norm
	}
	*b = Book(p)
	return nil
}

// MarshalJSON writes the known fields followed by Extra.
func (b Book) MarshalJSON() ([]byte, error) {
	type plain Book
	base, err := json.Marshal(plain(b))
	if err != nil {
		return nil, err
	}
	if len(b.Extra) == 0 {
		return base, nil
	}
	var m map[string]any
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for k, v := range b.Extra {
		if _, ok := knownKeys[k]; !ok {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

// normalizeExtra converts a decoded JSON value into a scalar or []any of
// scalars, reporting false for objects and nested arrays.
func normalizeExtra(v any) (any, bool) {
	switch t := v.(type) {
	case nil, string, bool, float64:
		return t, true
	case []any:
		for _, item := range t {
			switch item.(type) {
			case nil, string, bool, float64:
			default:
				return nil, false
			}
		}
		return t, true
	default:
		return nil, false
	}
}

// Field looks up a placeholder name. Names are case-sensitive; the legacy
// singular aliases (author, category) resolve to the sequence fields.
func (b Book) Field(name string) (any, bool) {
	switch name {
	case "title":
		return b.Title, true
	case "subtitle":
		return b.Subtitle, true
	case "authors", "author":
		return b.Authors, true
	case "categories", "category":
		return b.Categories, true
	case "publisher":
		return b.Publisher, true
	case "publishDate", "publishedDate":
		return b.PublishedDate, true
	case "totalPage", "pageCount":
		if b.PageCount == 0 {
			return nil, true
		}
		return b.PageCount, true
	case "description":
		return b.Description, true
	case "coverUrl", "thumbnail", "thumbnailUrl":
		return b.ThumbnailURL, true
	case "link":
		return b.Link, true
	case "previewLink":
		return b.PreviewLink, true
	case "isbn10":
		return b.ISBN10, true
	case "isbn13":
		return b.ISBN13, true
	case "isbn":
		if b.ISBN13 != "" {
			return b.ISBN13, true
		}
		return b.ISBN10, true
	case "language":
		return b.Language, true
	}
	v, ok := b.Extra[name]
	return v, ok
}

// ISBN returns the preferred identifier (ISBN-13, then ISBN-10).
func (b Book) ISBN() string {
	if b.ISBN13 != "" {
		return b.ISBN13
	}
	return b.ISBN10
}

// NormalizeISBN strips the hyphens and spaces ISBNs are commonly printed with.
func NormalizeISBN(s string) string {
	return isbnSeparators.Replace(strings.TrimSpace(s))
}

var isbnSeparators = strings.NewReplacer("-", "", " ", "")

var (
	descPolicyOnce sync.Once
	descPolicy     *bluemonday.Policy
)

func descriptionSanitizer() *bluemonday.Policy {
	descPolicyOnce.Do(func() {
		descPolicy = bluemonday.StrictPolicy()
	})
	return descPolicy
}

// Clean returns a copy with markup stripped from the description and
// surrounding whitespace trimmed from scalar fields. Metadata providers
// commonly return descriptions containing HTML.
func (b Book) Clean() Book {
	out := b
	out.Title = strings.TrimSpace(b.Title)
	out.Subtitle = strings.TrimSpace(b.Subtitle)
	out.Publisher = strings.TrimSpace(b.Publisher)
	out.ISBN10 = strings.TrimSpace(b.ISBN10)
	out.ISBN13 = strings.TrimSpace(b.ISBN13)
	out.Authors = trimAll(b.Authors)
	out.Categories = trimAll(b.Categories)
	if b.Description != "" {
		desc := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n").Replace(b.Description)
		desc = descriptionSanitizer().Sanitize(desc)
		out.Description = strings.TrimSpace(html.UnescapeString(desc))
	}
	return out
}

func trimAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
