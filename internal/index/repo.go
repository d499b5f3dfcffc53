package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/booknote/internal/apperr"
)

// BookRow represents a row in the books table.
type BookRow struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Authors   []string  `json:"authors"`
	ISBN      string    `json:"isbn,omitempty"`
	IsBook    bool      `json:"-"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

const defaultListLimit = 50

// sortClauses whitelists the ORDER BY expressions accepted by ListBooks.
var sortClauses = map[string]string{
	"":        "updated_at DESC, path ASC",
	"updated": "updated_at DESC, path ASC",
	"title":   "title COLLATE NOCASE ASC, path ASC",
	"path":    "path ASC",
}

// UpsertBook inserts or replaces a note and its FTS entry within a transaction.
func (db *DB) UpsertBook(b BookRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	authorsJSON, _ := json.Marshal(nonNil(b.Authors))
	tagsJSON, _ := json.Marshal(nonNil(b.Tags))
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now().UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO books (path, title, authors, isbn, is_book, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			authors    = excluded.authors,
			isbn       = excluded.isbn,
			is_book    = excluded.is_book,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, b.Path, b.Title, string(authorsJSON), b.ISBN, b.IsBook, b.Checksum, string(tagsJSON), body, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert book: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, b, body); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteBook removes a note and its FTS entry.
func (db *DB) DeleteBook(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM books WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete book: %w", err)
	}

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM books WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM books`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

const bookColumns = `path, title, authors, isbn, is_book, checksum, tags, updated_at`

// GetBook returns the indexed row for path.
func (db *DB) GetBook(path string) (*BookRow, error) {
	row := db.conn.QueryRow(`SELECT `+bookColumns+` FROM books WHERE path = ?`, path)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: get %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get %s: %w", path, err)
	}
	return b, nil
}

// FindByISBN returns the first book note carrying isbn.
func (db *DB) FindByISBN(isbn string) (*BookRow, error) {
	if isbn == "" {
		return nil, fmt.Errorf("index: find by isbn: %w", apperr.ErrNotFound)
	}
	row := db.conn.QueryRow(`SELECT `+bookColumns+` FROM books WHERE isbn = ? AND is_book = 1 ORDER BY path LIMIT 1`, isbn)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: find by isbn %s: %w", isbn, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: find by isbn %s: %w", isbn, err)
	}
	return b, nil
}

// ListBooks returns a page of book notes and the total number of books.
// sort is one of "updated" (default), "title" or "path".
func (db *DB) ListBooks(limit, offset int, sort string) ([]BookRow, int, error) {
	order, ok := sortClauses[sort]
	if !ok {
		return nil, 0, fmt.Errorf("index: unknown sort %q: %w", sort, apperr.ErrInvalidRecord)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM books WHERE is_book = 1`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count books: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+bookColumns+` FROM books WHERE is_book = 1 ORDER BY `+order+` LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list books: %w", err)
	}
	defer rows.Close()

	var out []BookRow
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *b)
	}
	return out, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(s rowScanner) (*BookRow, error) {
	var b BookRow
	var authorsJSON, tagsJSON string
	if err := s.Scan(&b.Path, &b.Title, &authorsJSON, &b.ISBN, &b.IsBook, &b.Checksum, &tagsJSON, &b.UpdatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(authorsJSON), &b.Authors)
	_ = json.Unmarshal([]byte(tagsJSON), &b.Tags)
	return &b, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
