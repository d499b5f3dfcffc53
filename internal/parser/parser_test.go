package parser

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/booknote/internal/models"
	"github.com/starford/booknote/internal/render"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Dune\nauthors:\n  - Frank Herbert\nisbn13: \"978-0441013593\"\ntags:\n  - book\n  - scifi\n---\n# Dune\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Dune" {
		t.Errorf("title = %q, want %q", r.Title, "Dune")
	}
	if diff := cmp.Diff([]string{"Frank Herbert"}, r.Authors); diff != "" {
		t.Errorf("authors mismatch (-want +got):\n%s", diff)
	}
	if r.ISBN != "9780441013593" {
		t.Errorf("isbn = %q, want %q", r.ISBN, "9780441013593")
	}
	if diff := cmp.Diff([]string{"book", "scifi"}, r.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if r.Body != "# Dune\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestParse_ScalarAuthorAndNumericISBN(t *testing.T) {
	r, err := Parse([]byte("---\nauthor: Jane Austen\nisbn10: 1234567890\n---\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"Jane Austen"}, r.Authors); diff != "" {
		t.Errorf("authors mismatch (-want +got):\n%s", diff)
	}
	if r.ISBN != "1234567890" {
		t.Errorf("isbn = %q", r.ISBN)
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := map[string]any{
		"tags": []any{"alpha", "#gamma"},
	}
	body := "Some text #beta and #alpha again."
	tags := extractTags(body, fm)
	if diff := cmp.Diff([]string{"alpha", "gamma", "beta"}, tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	fm := map[string]any{"title": "FM Title"}
	title := deriveTitle(fm, "# H1 Title\ntext")
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	title := deriveTitle(nil, "some text\n# My Heading\nmore")
	if title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}

func TestResultBook_RoundTripsRenderedNote(t *testing.T) {
	want := models.Book{
		Title:         `Dune: "Deluxe"`,
		Subtitle:      "50th Anniversary",
		Authors:       []string{"Frank Herbert", "Brian Herbert, Jr."},
		Categories:    []string{"Fiction"},
		Publisher:     "Ace",
		PublishedDate: "2005-08-02",
		PageCount:     896,
		Description:   "Spice.\nWorms.",
		ISBN10:        "0441013597",
		ISBN13:        "9780441013593",
		ThumbnailURL:  "http://img.example/dune.jpg",
	}
	note := render.Render(want, render.FromLegacy(render.LegacyConfig{
		Content:               "# {{title}}\n",
		UseDefaultFrontmatter: true,
		KeyType:               render.KeyTypeBlock,
	}), time.Time{})

	r, err := Parse([]byte(note))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(want, r.Book()); diff != "" {
		t.Errorf("book mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"book"}, r.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_DuplicateKeysLastWins(t *testing.T) {
	input := []byte("---\ntitle: Dune\nisbn13: \"9780441013593\"\ntags: [book]\ntags: [book, fiction]\n---\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ISBN != "9780441013593" {
		t.Errorf("isbn = %q, want %q", r.ISBN, "9780441013593")
	}
	if diff := cmp.Diff([]string{"book", "fiction"}, r.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_NonMappingFrontmatter(t *testing.T) {
	r, err := Parse([]byte("---\n- a\n- b\n---\nBody\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter for a sequence block, got %v", r.Frontmatter)
	}
}
