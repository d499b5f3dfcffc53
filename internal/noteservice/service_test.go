package noteservice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/booknote/internal/apperr"
	"github.com/starford/booknote/internal/index"
	"github.com/starford/booknote/internal/models"
	"github.com/starford/booknote/internal/render"
	"github.com/starford/booknote/internal/storage"
	"github.com/starford/booknote/internal/testutil"
)

var fixedNow = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

func dune() models.Book {
	return models.Book{
		Title:     "Dune",
		Authors:   []string{"Frank Herbert"},
		Publisher: "Ace",
		ISBN13:    "9780441013593",
		PageCount: 412,
	}
}

func legacySettings() Settings {
	return Settings{
		Folder:         "Books",
		FileNameFormat: "{{title}} - {{author}}",
		Legacy: render.LegacyConfig{
			Content:               "# {{title}}\n",
			UseDefaultFrontmatter: true,
			KeyType:               render.KeyTypeInline,
		},
	}
}

type changeLog struct {
	events []string
}

func (c *changeLog) record(kind, path string) {
	c.events = append(c.events, kind+":"+path)
}

func newTestService(t *testing.T, settings Settings) (*Service, string, storage.Provider, *changeLog) {
	t.Helper()
	vaultDir, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	log := &changeLog{}
	svc := NewService(store, db, settings, WithClock(func() time.Time { return fixedNow }), WithChangeFunc(log.record))
	return svc, vaultDir, store, log
}

func TestPreview(t *testing.T) {
	svc, _, _, _ := newTestService(t, legacySettings())

	p, err := svc.Preview(context.Background(), dune())
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if p.FileName != "Dune - Frank Herbert.md" {
		t.Errorf("FileName = %q", p.FileName)
	}
	if p.Path != "Books/Dune - Frank Herbert.md" {
		t.Errorf("Path = %q", p.Path)
	}
	if !strings.HasPrefix(p.Content, "---\ntitle: Dune\n") || !strings.HasSuffix(p.Content, "---\n# Dune\n") {
		t.Errorf("Content = %q", p.Content)
	}
}

func TestRender_TemplateFile(t *testing.T) {
	settings := legacySettings()
	settings.TemplateFile = "Templates/book"
	svc, vaultDir, _, _ := newTestService(t, settings)

	_ = os.MkdirAll(filepath.Join(vaultDir, "Templates"), 0o755)
	tmpl := "---\ntitle: {{title}}\ncreated: {{date:YYYY-MM-DD}}\n---\n{{#publisher}}Published by {{publisher}}{{/publisher}}\n"
	if err := os.WriteFile(filepath.Join(vaultDir, "Templates", "book.md"), []byte(tmpl), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Render(context.Background(), dune())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "---\ntitle: Dune\ncreated: 2024-03-05\n---\nPublished by Ace\n"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestRender_MissingTemplateFile(t *testing.T) {
	settings := legacySettings()
	settings.TemplateFile = "Templates/none.md"
	svc, _, _, _ := newTestService(t, settings)

	_, err := svc.Render(context.Background(), dune())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRender_CleansDescription(t *testing.T) {
	settings := legacySettings()
	settings.Legacy = render.LegacyConfig{Content: "{{description}}"}
	svc, _, _, _ := newTestService(t, settings)

	book := dune()
	book.Description = "<p>A desert <b>planet</b>.</p>"
	got, err := svc.Render(context.Background(), book)
	if err != nil {
		t.Fatal(err)
	}
	if got != "A desert planet." {
		t.Errorf("Render = %q", got)
	}
}

func TestCreateNote(t *testing.T) {
	svc, vaultDir, _, log := newTestService(t, legacySettings())
	ctx := context.Background()

	note, err := svc.CreateNote(ctx, dune(), false)
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if note.Path != "Books/Dune - Frank Herbert.md" {
		t.Errorf("Path = %q", note.Path)
	}
	if note.Book.ISBN13 != "9780441013593" {
		t.Errorf("Book.ISBN13 = %q", note.Book.ISBN13)
	}
	if note.Checksum != storage.Checksum([]byte(note.Content)) {
		t.Error("checksum mismatch")
	}

	data, err := os.ReadFile(filepath.Join(vaultDir, "Books", "Dune - Frank Herbert.md"))
	if err != nil {
		t.Fatalf("note not on disk: %v", err)
	}
	if string(data) != note.Content {
		t.Error("disk content differs from returned content")
	}

	row, err := svc.FindByISBN(ctx, "9780441013593")
	if err != nil {
		t.Fatalf("FindByISBN: %v", err)
	}
	if row.Path != note.Path {
		t.Errorf("indexed path = %q", row.Path)
	}

	if diff := cmp.Diff([]string{index.EventCreated + ":" + note.Path}, log.events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestCreateNote_DuplicateISBN(t *testing.T) {
	svc, _, _, _ := newTestService(t, legacySettings())
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, dune(), false); err != nil {
		t.Fatal(err)
	}
	_, err := svc.CreateNote(ctx, dune(), false)
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}

	forced, err := svc.CreateNote(ctx, dune(), true)
	if err != nil {
		t.Fatalf("forced CreateNote: %v", err)
	}
	if forced.Path != "Books/Dune - Frank Herbert 1.md" {
		t.Errorf("forced Path = %q", forced.Path)
	}
}

func TestCreateNote_UserTagsKeepBookIndexed(t *testing.T) {
	settings := legacySettings()
	settings.Legacy.Frontmatter = "tags: [book, fiction]"
	svc, _, _, _ := newTestService(t, settings)
	ctx := context.Background()

	note, err := svc.CreateNote(ctx, dune(), false)
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if diff := cmp.Diff([]string{"book", "fiction"}, note.Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}

	_, total, err := svc.ListBooks(ctx, 0, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
	row, err := svc.FindByISBN(ctx, "9780441013593")
	if err != nil {
		t.Fatalf("FindByISBN: %v", err)
	}
	if row.Path != note.Path {
		t.Errorf("indexed path = %q, want %q", row.Path, note.Path)
	}

	if _, err := svc.CreateNote(ctx, dune(), false); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("second CreateNote err = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateNote_DuplicateISBNWithSeparators(t *testing.T) {
	svc, _, _, _ := newTestService(t, legacySettings())
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, dune(), false); err != nil {
		t.Fatal(err)
	}
	again := dune()
	again.ISBN13 = " 978-0441013593 "
	if _, err := svc.CreateNote(ctx, again, false); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

// brokenIndex fails every write.
type brokenIndex struct {
	index.BookIndex
}

func (brokenIndex) UpsertBook(index.BookRow, string) error {
	return errors.New("disk full")
}

func TestCreateNote_IndexFailureRemovesNote(t *testing.T) {
	_, store := testutil.TestVault(t)
	log := &changeLog{}
	svc := NewService(store, brokenIndex{testutil.TestDB(t)}, legacySettings(), WithChangeFunc(log.record))

	if _, err := svc.CreateNote(context.Background(), dune(), false); err == nil {
		t.Fatal("expected index error")
	}
	if ok, _ := store.Exists("Books/Dune - Frank Herbert.md"); ok {
		t.Error("note should be removed when indexing fails")
	}
	if len(log.events) != 0 {
		t.Errorf("events = %v, want none", log.events)
	}
}

func TestCreateNote_NoISBNNeverCollides(t *testing.T) {
	svc, _, _, _ := newTestService(t, legacySettings())
	ctx := context.Background()

	book := models.Book{Title: "Untitled Zine"}
	first, err := svc.CreateNote(ctx, book, false)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.CreateNote(ctx, book, false)
	if err != nil {
		t.Fatal(err)
	}
	if first.Path == second.Path {
		t.Errorf("both notes written to %q", first.Path)
	}
}

func TestInsertMetadata(t *testing.T) {
	settings := legacySettings()
	settings.Legacy.UseDefaultFrontmatter = false
	settings.Legacy.Frontmatter = "author: {{author}}"
	svc, vaultDir, _, log := newTestService(t, settings)

	if err := os.WriteFile(filepath.Join(vaultDir, "Dune.md"), []byte("my notes\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	note, err := svc.InsertMetadata(context.Background(), "Dune.md", dune())
	if err != nil {
		t.Fatalf("InsertMetadata: %v", err)
	}
	want := "---\nauthor: Frank Herbert\n---\n# Dune\nmy notes\n"
	if note.Content != want {
		t.Errorf("Content = %q, want %q", note.Content, want)
	}
	if diff := cmp.Diff([]string{index.EventUpdated + ":Dune.md"}, log.events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestInsertMetadata_MissingNote(t *testing.T) {
	svc, _, _, _ := newTestService(t, legacySettings())
	_, err := svc.InsertMetadata(context.Background(), "nope.md", dune())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchAndCreate(t *testing.T) {
	svc, _, _, _ := newTestService(t, legacySettings())
	src := Candidates{
		{Title: "Dune Messiah", Authors: []string{"Frank Herbert"}},
		dune(),
	}

	note, err := svc.SearchAndCreate(context.Background(), "dune", src, IndexSelector(1), false)
	if err != nil {
		t.Fatalf("SearchAndCreate: %v", err)
	}
	if note.Title != "Dune" {
		t.Errorf("Title = %q", note.Title)
	}
}

func TestSearchAndCreate_NoCandidates(t *testing.T) {
	svc, _, _, _ := newTestService(t, legacySettings())
	_, err := svc.SearchAndCreate(context.Background(), "neuromancer", Candidates{dune()}, IndexSelector(0), false)
	if !errors.Is(err, apperr.ErrNoCandidates) {
		t.Errorf("err = %v, want ErrNoCandidates", err)
	}
}

func TestSearchAndCreate_Cancelled(t *testing.T) {
	svc, vaultDir, _, log := newTestService(t, legacySettings())
	_, err := svc.SearchAndCreate(context.Background(), "", Candidates{dune()}, IndexSelector(5), false)
	if !errors.Is(err, apperr.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if _, statErr := os.Stat(filepath.Join(vaultDir, "Books")); !os.IsNotExist(statErr) {
		t.Error("cancelled selection should not write anything")
	}
	if len(log.events) != 0 {
		t.Errorf("events = %v", log.events)
	}
}

type recordingSource struct {
	query string
}

func (r *recordingSource) Search(_ context.Context, query string) ([]models.Book, error) {
	r.query = query
	return []models.Book{dune()}, nil
}

func TestSearchAndInsert_UsesBaseNameAsQuery(t *testing.T) {
	svc, vaultDir, _, _ := newTestService(t, legacySettings())
	_ = os.MkdirAll(filepath.Join(vaultDir, "Reading"), 0o755)
	_ = os.WriteFile(filepath.Join(vaultDir, "Reading", "Dune.md"), []byte("draft"), 0o644)

	src := &recordingSource{}
	if _, err := svc.SearchAndInsert(context.Background(), "Reading/Dune.md", src, IndexSelector(0)); err != nil {
		t.Fatalf("SearchAndInsert: %v", err)
	}
	if src.query != "Dune" {
		t.Errorf("query = %q, want %q", src.query, "Dune")
	}
}

func TestGetNote(t *testing.T) {
	svc, vaultDir, _, _ := newTestService(t, legacySettings())
	note := "---\ntitle: Dune\nauthors: [Frank Herbert]\ntotalPage: 412\ntags: [book]\n---\n# Dune\n"
	_ = os.WriteFile(filepath.Join(vaultDir, "Dune.md"), []byte(note), 0o644)

	got, err := svc.GetNote(context.Background(), "Dune.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Book.Title != "Dune" || got.Book.PageCount != 412 {
		t.Errorf("Book = %+v", got.Book)
	}
	if diff := cmp.Diff([]string{"book"}, got.Tags); diff != "" {
		t.Errorf("Tags (-want +got):\n%s", diff)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t, legacySettings())
	if _, err := svc.GetNote(context.Background(), "missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteNote(t *testing.T) {
	svc, _, _, log := newTestService(t, legacySettings())
	ctx := context.Background()

	note, err := svc.CreateNote(ctx, dune(), false)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteNote(ctx, note.Path); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := svc.FindByISBN(ctx, "9780441013593"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("FindByISBN after delete: %v", err)
	}
	if len(log.events) != 2 || log.events[1] != index.EventDeleted+":"+note.Path {
		t.Errorf("events = %v", log.events)
	}
}

func TestListBooks(t *testing.T) {
	svc, _, _, _ := newTestService(t, legacySettings())
	ctx := context.Background()

	_, _ = svc.CreateNote(ctx, dune(), false)
	_, _ = svc.CreateNote(ctx, models.Book{Title: "Hyperion", Authors: []string{"Dan Simmons"}, ISBN13: "9780553283686"}, false)

	items, total, err := svc.ListBooks(ctx, 10, 0, "title")
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("total = %d, len = %d", total, len(items))
	}
	if items[0].Title != "Dune" || items[1].Title != "Hyperion" {
		t.Errorf("order = %q, %q", items[0].Title, items[1].Title)
	}
	if items[1].ISBN != "9780553283686" {
		t.Errorf("ISBN = %q", items[1].ISBN)
	}
}

func TestSearch(t *testing.T) {
	svc, _, _, _ := newTestService(t, legacySettings())
	ctx := context.Background()
	_, _ = svc.CreateNote(ctx, dune(), false)

	results, err := svc.Search(ctx, "Herbert", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Dune" {
		t.Errorf("results = %+v", results)
	}
}
