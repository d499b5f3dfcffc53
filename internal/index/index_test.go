package index

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/booknote/internal/apperr"
	"github.com/starford/booknote/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "booknote-test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func bookRow(path, title, isbn string) BookRow {
	return BookRow{
		Path:      path,
		Title:     title,
		Authors:   []string{"Frank Herbert"},
		ISBN:      isbn,
		IsBook:    true,
		Checksum:  "cs-" + path,
		Tags:      []string{BookTag},
		UpdatedAt: time.Now(),
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM books`).Scan(&count); err != nil {
		t.Fatalf("books table missing: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := bookRow("Dune.md", "Dune", "9780441013593")
	row.Checksum = "abc123"
	if err := db.UpsertBook(row, "Spice must flow."); err != nil {
		t.Fatalf("UpsertBook: %v", err)
	}
	cs, err := db.GetChecksum("Dune.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestGetBook(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertBook(bookRow("Dune.md", "Dune", "9780441013593"), "body")

	b, err := db.GetBook("Dune.md")
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if b.Title != "Dune" || b.ISBN != "9780441013593" || !b.IsBook {
		t.Errorf("book = %+v", b)
	}
	if len(b.Authors) != 1 || b.Authors[0] != "Frank Herbert" {
		t.Errorf("authors = %v", b.Authors)
	}

	if _, err := db.GetBook("missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFindByISBN(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertBook(bookRow("Books/Dune.md", "Dune", "9780441013593"), "body")

	b, err := db.FindByISBN("9780441013593")
	if err != nil {
		t.Fatalf("FindByISBN: %v", err)
	}
	if b.Path != "Books/Dune.md" {
		t.Errorf("path = %q", b.Path)
	}
	if _, err := db.FindByISBN("0000000000"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := db.FindByISBN(""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("empty isbn err = %v, want ErrNotFound", err)
	}
}

func TestDeleteBook(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertBook(bookRow("del.md", "Gone", "1"), "body")

	if err := db.DeleteBook("del.md"); err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertBook(bookRow("up.md", "Old", "1"), "old body")
	row := bookRow("up.md", "New", "2")
	row.Checksum = "2"
	_ = db.UpsertBook(row, "new body")

	b, err := db.GetBook("up.md")
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if b.Title != "New" || b.Checksum != "2" || b.ISBN != "2" {
		t.Errorf("book = %+v", b)
	}
}

func TestListBooks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertBook(bookRow("b.md", "Emma", "2"), "")
	_ = db.UpsertBook(bookRow("a.md", "dune", "1"), "")
	_ = db.UpsertBook(bookRow("c.md", "Ulysses", "3"), "")
	other := BookRow{Path: "journal.md", Title: "Journal", Checksum: "j"}
	_ = db.UpsertBook(other, "not a book")

	rows, total, err := db.ListBooks(2, 0, "title")
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(rows) != 2 || rows[0].Title != "dune" || rows[1].Title != "Emma" {
		t.Errorf("rows = %+v", rows)
	}

	rows, _, _ = db.ListBooks(2, 2, "title")
	if len(rows) != 1 || rows[0].Title != "Ulysses" {
		t.Errorf("second page = %+v", rows)
	}

	if _, _, err := db.ListBooks(10, 0, "rating; DROP TABLE books"); !errors.Is(err, apperr.ErrInvalidRecord) {
		t.Errorf("err = %v, want ErrInvalidRecord", err)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertBook(bookRow("s.md", "Search Me", "1"), "uniqueword appears here")
	_ = db.UpsertBook(BookRow{Path: "n.md", Title: "Not a book", Checksum: "n"}, "uniqueword here too")

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	_ = store.Write("Books/Dune.md", []byte("---\ntitle: Dune\nisbn13: \"9780441013593\"\ntags: [book]\n---\n# Dune\n"))
	_ = store.Write("Daily/today.md", []byte("# Today\n"))
	_ = db.UpsertBook(bookRow("Books/Gone.md", "Gone", "1"), "")

	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	b, err := db.FindByISBN("9780441013593")
	if err != nil {
		t.Fatalf("FindByISBN: %v", err)
	}
	if b.Path != "Books/Dune.md" || b.Title != "Dune" {
		t.Errorf("book = %+v", b)
	}
	if cs, _ := db.GetChecksum("Daily/today.md"); cs == "" {
		t.Error("non-book note should still be tracked")
	}
	if cs, _ := db.GetChecksum("Books/Gone.md"); cs != "" {
		t.Error("stale entry should be removed")
	}
	_, total, _ := db.ListBooks(10, 0, "")
	if total != 1 {
		t.Errorf("total books = %d, want 1", total)
	}
}
