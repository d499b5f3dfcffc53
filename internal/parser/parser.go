// Package parser extracts front matter, book metadata and tags from book notes.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/booknote/internal/models"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Result holds the output of parsing a book note.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Tags        []string
	Title       string
	Authors     []string
	ISBN        string
}

// Parse extracts front matter, body, tags and the identifying book fields
// from raw Markdown bytes. Notes without front matter, or with front matter
// that is not valid YAML, are treated as body only.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body),
		Authors:     stringList(fm, "authors", "author"),
		ISBN:        deriveISBN(fm),
	}, nil
}

// Book rebuilds the metadata record from the front matter.
func (r *Result) Book() models.Book {
	b := models.Book{
		Title:         r.Title,
		Subtitle:      scalar(r.Frontmatter, "subtitle"),
		Authors:       r.Authors,
		Categories:    stringList(r.Frontmatter, "categories", "category"),
		Publisher:     scalar(r.Frontmatter, "publisher"),
		PublishedDate: scalar(r.Frontmatter, "publishDate", "publishedDate"),
		Description:   scalar(r.Frontmatter, "description"),
		ThumbnailURL:  scalar(r.Frontmatter, "coverUrl", "thumbnail"),
		ISBN10:        scalar(r.Frontmatter, "isbn10"),
		ISBN13:        scalar(r.Frontmatter, "isbn13"),
	}
	if n, err := strconv.Atoi(scalar(r.Frontmatter, "totalPage", "pageCount")); err == nil && n > 0 {
		b.PageCount = n
	}
	return b
}

// splitFrontmatter separates YAML front matter (between leading --- delimiters)
// from the Markdown body. If no front matter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	fm, err := decodeFrontmatter(yamlBlock)
	if err != nil {
		return nil, string(data), nil
	}

	return fm, body, nil
}

// decodeFrontmatter decodes a top-level YAML mapping. A key that appears more
// than once keeps its last value, so user front matter appended after the
// generated block overrides it.
func decodeFrontmatter(block []byte) (map[string]any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("front matter is not a mapping")
	}

	fm := make(map[string]any, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		var key string
		if err := root.Content[i].Decode(&key); err != nil {
			continue
		}
		var v any
		if err := root.Content[i+1].Decode(&v); err != nil {
			continue
		}
		fm[key] = v
	}
	return fm, nil
}

// extractTags collects tags from the front matter "tags" field and #tags in
// the body, without duplicates.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimPrefix(strings.TrimSpace(s), "#")
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, s := range stringList(fm, "tags") {
		add(s)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the front matter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if s := scalar(fm, "title"); s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// deriveISBN prefers ISBN-13, then ISBN-10, then a generic isbn key.
// Hyphens and spaces are removed.
func deriveISBN(fm map[string]any) string {
	return models.NormalizeISBN(scalar(fm, "isbn13", "isbn10", "isbn"))
}

// scalar returns the first non-empty value among keys as a string.
func scalar(fm map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := scalarText(fm[k]); s != "" {
			return s
		}
	}
	return ""
}

func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.DateOnly)
	}
	return fmt.Sprint(v)
}

// stringList returns the first present key as a list. A scalar value becomes
// a one-element list.
func stringList(fm map[string]any, keys ...string) []string {
	for _, k := range keys {
		raw, ok := fm[k]
		if !ok || raw == nil {
			continue
		}
		items, isList := raw.([]any)
		if !isList {
			if s := scalarText(raw); s != "" {
				return []string{s}
			}
			continue
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s := scalarText(item); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}
