//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS books_fts USING fts5(
			path UNINDEXED,
			title,
			authors,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

// ftsUpsert only keeps book notes in the FTS table so Search never returns
// other vault notes.
func ftsUpsert(tx *sql.Tx, b BookRow, body string) error {
	_, _ = tx.Exec(`DELETE FROM books_fts WHERE path = ?`, b.Path)
	if !b.IsBook {
		return nil
	}
	_, err := tx.Exec(`INSERT INTO books_fts (path, title, authors, body, tags) VALUES (?, ?, ?, ?, ?)`,
		b.Path, b.Title, strings.Join(b.Authors, " "), body, strings.Join(b.Tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM books_fts WHERE path = ?`, path)
}

// Search performs an FTS5 full-text search and returns matching results with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT path,
		       title,
		       snippet(books_fts, 3, '<b>', '</b>', '...', 64)
		FROM books_fts
		WHERE books_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
