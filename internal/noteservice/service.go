// Package noteservice coordinates rendering, storage and the library index.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/booknote/internal/apperr"
	"github.com/starford/booknote/internal/index"
	"github.com/starford/booknote/internal/models"
	"github.com/starford/booknote/internal/parser"
	"github.com/starford/booknote/internal/render"
	"github.com/starford/booknote/internal/storage"
)

const noteExt = ".md"

// Settings controls how notes are rendered and where new notes go.
type Settings struct {
	// Folder is the vault-relative directory for new notes.
	Folder         string
	FileNameFormat string
	// TemplateFile is a vault-relative template path. When empty the
	// Legacy settings are used.
	TemplateFile string
	Legacy       render.LegacyConfig
}

// Preview is a rendered note that has not been written.
type Preview struct {
	FileName string `json:"file_name"`
	Path     string `json:"path"`
	Content  string `json:"content"`
}

// NoteDetail is the full representation of a book note.
type NoteDetail struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Book        models.Book    `json:"book"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// BookListItem is a lightweight item in a list response.
type BookListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Authors   []string  `json:"authors"`
	ISBN      string    `json:"isbn,omitempty"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChangeFunc is called after the service writes or removes a note.
// kind is one of index.EventCreated, index.EventUpdated, index.EventDeleted.
type ChangeFunc func(kind, path string)

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source used for date directives.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithChangeFunc registers a callback for note changes.
func WithChangeFunc(fn ChangeFunc) Option {
	return func(s *Service) {
		s.onChange = fn
	}
}

// Service coordinates storage and index operations.
type Service struct {
	store    storage.Provider
	db       index.BookIndex
	settings Settings
	now      func() time.Time
	onChange ChangeFunc
}

// NewService creates a new note service.
func NewService(store storage.Provider, db index.BookIndex, settings Settings, opts ...Option) *Service {
	s := &Service{
		store:    store,
		db:       db,
		settings: settings,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// loadTemplate resolves the template mechanism. A configured template file
// is read from the vault as given, then with ".md" appended.
func (s *Service) loadTemplate() (render.TemplateSpec, error) {
	name := strings.TrimSpace(s.settings.TemplateFile)
	if name == "" {
		return render.FromLegacy(s.settings.Legacy), nil
	}
	data, err := s.store.Read(name)
	if errors.Is(err, apperr.ErrNotFound) && !strings.HasSuffix(name, noteExt) {
		data, err = s.store.Read(name + noteExt)
	}
	if err != nil {
		return render.TemplateSpec{}, fmt.Errorf("noteservice: load template %s: %w", name, err)
	}
	return render.FromTemplateFile(string(data)), nil
}

// Render produces the note text for book with the configured template.
func (s *Service) Render(_ context.Context, book models.Book) (string, error) {
	spec, err := s.loadTemplate()
	if err != nil {
		return "", err
	}
	return render.Render(book.Clean(), spec, s.now()), nil
}

// Preview renders book and derives the file name without writing anything.
func (s *Service) Preview(ctx context.Context, book models.Book) (*Preview, error) {
	content, err := s.Render(ctx, book)
	if err != nil {
		return nil, err
	}
	name := render.MakeFileName(book.Clean(), s.settings.FileNameFormat)
	return &Preview{
		FileName: name + noteExt,
		Path:     path.Join(s.settings.Folder, name+noteExt),
		Content:  content,
	}, nil
}

// CreateNote renders book into a new note in the configured folder. Unless
// force is set, a book whose ISBN is already in the library is refused with
// apperr.ErrAlreadyExists. An existing file with the same name is never
// overwritten; a numeric suffix is added instead. If the new note cannot be
// indexed it is removed again.
func (s *Service) CreateNote(ctx context.Context, book models.Book, force bool) (*NoteDetail, error) {
	book = book.Clean()
	if !force {
		if isbn := models.NormalizeISBN(book.ISBN()); isbn != "" {
			existing, err := s.db.FindByISBN(isbn)
			if err == nil {
				return nil, fmt.Errorf("noteservice: create: isbn %s is in %s: %w", isbn, existing.Path, apperr.ErrAlreadyExists)
			}
			if !errors.Is(err, apperr.ErrNotFound) {
				return nil, err
			}
		}
	}

	content, err := s.Render(ctx, book)
	if err != nil {
		return nil, err
	}
	name := render.MakeFileName(book, s.settings.FileNameFormat)
	p, err := s.store.CreateUnique(s.settings.Folder, name, noteExt, []byte(content))
	if err != nil {
		return nil, err
	}
	if err := s.IndexFile(p, []byte(content)); err != nil {
		if delErr := s.store.Delete(p); delErr != nil {
			return nil, errors.Join(fmt.Errorf("noteservice: create: index %s: %w", p, err), delErr)
		}
		return nil, fmt.Errorf("noteservice: create: index %s: %w", p, err)
	}
	s.notify(index.EventCreated, p)
	return buildNoteDetail(p, []byte(content))
}

// InsertMetadata renders book and prepends it to the existing note at p.
func (s *Service) InsertMetadata(ctx context.Context, p string, book models.Book) (*NoteDetail, error) {
	existing, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	rendered, err := s.Render(ctx, book)
	if err != nil {
		return nil, err
	}
	content := []byte(rendered + string(existing))
	if err := s.store.Write(p, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(p, content); err != nil {
		return nil, err
	}
	s.notify(index.EventUpdated, p)
	return buildNoteDetail(p, content)
}

// SearchAndCreate asks src for candidates matching query, lets sel pick one
// and creates a note for it.
func (s *Service) SearchAndCreate(ctx context.Context, query string, src Source, sel Selector, force bool) (*NoteDetail, error) {
	book, err := s.pick(ctx, query, src, sel)
	if err != nil {
		return nil, err
	}
	return s.CreateNote(ctx, book, force)
}

// SearchAndInsert is the insert flow: the note's base name is the query and
// the chosen book is prepended to the note.
func (s *Service) SearchAndInsert(ctx context.Context, p string, src Source, sel Selector) (*NoteDetail, error) {
	query := strings.TrimSuffix(path.Base(p), path.Ext(p))
	book, err := s.pick(ctx, query, src, sel)
	if err != nil {
		return nil, err
	}
	return s.InsertMetadata(ctx, p, book)
}

func (s *Service) pick(ctx context.Context, query string, src Source, sel Selector) (models.Book, error) {
	candidates, err := src.Search(ctx, query)
	if err != nil {
		return models.Book{}, fmt.Errorf("noteservice: search %q: %w", query, err)
	}
	if len(candidates) == 0 {
		return models.Book{}, fmt.Errorf("noteservice: search %q: %w", query, apperr.ErrNoCandidates)
	}
	book, err := sel.Select(ctx, candidates)
	if err != nil {
		return models.Book{}, fmt.Errorf("noteservice: select: %w", err)
	}
	return book, nil
}

// GetNote reads a note from storage and parses its book metadata.
func (s *Service) GetNote(_ context.Context, p string) (*NoteDetail, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	return buildNoteDetail(p, data)
}

// DeleteNote removes a note from storage and index.
func (s *Service) DeleteNote(_ context.Context, p string) error {
	if err := s.store.Delete(p); err != nil {
		return err
	}
	if err := s.db.DeleteBook(p); err != nil {
		return err
	}
	s.notify(index.EventDeleted, p)
	return nil
}

// ListBooks returns a page of book notes.
func (s *Service) ListBooks(_ context.Context, limit, offset int, sort string) ([]BookListItem, int, error) {
	rows, total, err := s.db.ListBooks(limit, offset, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]BookListItem, len(rows))
	for i, r := range rows {
		items[i] = BookListItem{
			Path:      r.Path,
			Title:     r.Title,
			Authors:   nonNilSlice(r.Authors),
			ISBN:      r.ISBN,
			Tags:      nonNilSlice(r.Tags),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// FindByISBN returns the library entry for isbn.
func (s *Service) FindByISBN(_ context.Context, isbn string) (*index.BookRow, error) {
	return s.db.FindByISBN(isbn)
}

// IndexFile parses data and upserts it into the index.
func (s *Service) IndexFile(p string, data []byte) error {
	return index.IndexFile(s.db, p, data)
}

func (s *Service) notify(kind, p string) {
	if s.onChange != nil {
		s.onChange(kind, p)
	}
}

// buildNoteDetail constructs a NoteDetail from raw data without re-reading the file.
func buildNoteDetail(p string, data []byte) (*NoteDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{
		Path:        p,
		Title:       res.Title,
		Content:     string(data),
		Checksum:    storage.Checksum(data),
		Tags:        nonNilSlice(res.Tags),
		Book:        res.Book(),
		Frontmatter: res.Frontmatter,
		UpdatedAt:   time.Now(),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
