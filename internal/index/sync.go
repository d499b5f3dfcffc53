package index

import (
	"log/slog"
	"slices"

	"github.com/starford/booknote/internal/parser"
	"github.com/starford/booknote/internal/storage"
)

// BookTag marks a note as a book note even when it carries no ISBN.
const BookTag = "book"

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteBook(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses data and upserts it into the DB. Notes tagged "book" or
// carrying an ISBN are book notes; other notes are tracked for sync only.
func IndexFile(db BookIndex, path string, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}

	row := BookRow{
		Path:     path,
		Title:    res.Title,
		Authors:  res.Authors,
		ISBN:     res.ISBN,
		IsBook:   res.ISBN != "" || slices.Contains(res.Tags, BookTag),
		Checksum: storage.Checksum(data),
		Tags:     res.Tags,
	}
	return db.UpsertBook(row, res.Body)
}
