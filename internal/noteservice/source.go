package noteservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/starford/booknote/internal/apperr"
	"github.com/starford/booknote/internal/models"
)

// Source supplies candidate book records for a query.
type Source interface {
	Search(ctx context.Context, query string) ([]models.Book, error)
}

// Candidates is an in-memory Source.
type Candidates []models.Book

// Search returns the candidates whose title, subtitle, authors or ISBN
// contain query, ignoring case. An empty query matches everything.
func (c Candidates) Search(ctx context.Context, query string) ([]models.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return append([]models.Book(nil), c...), nil
	}
	var out []models.Book
	for _, b := range c {
		if matches(b, q) {
			out = append(out, b)
		}
	}
	return out, nil
}

func matches(b models.Book, q string) bool {
	fields := append([]string{b.Title, b.Subtitle, b.ISBN10, b.ISBN13}, b.Authors...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// FileSource reads candidates from a JSON file holding an array of book
// records, as exported from a metadata provider.
type FileSource struct {
	Path string
}

// Search loads and validates the file, then filters it like Candidates.
func (f FileSource) Search(ctx context.Context, query string) ([]models.Book, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("candidates file %s: %w", f.Path, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("candidates file %s: %w", f.Path, err)
	}
	books, err := models.DecodeBooks(data)
	if err != nil {
		return nil, fmt.Errorf("candidates file %s: %w: %w", f.Path, apperr.ErrInvalidRecord, err)
	}
	return Candidates(books).Search(ctx, query)
}
