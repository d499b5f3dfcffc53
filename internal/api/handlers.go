package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/booknote/internal/index"
	"github.com/starford/booknote/internal/models"
	"github.com/starford/booknote/internal/noteservice"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// notePath extracts the note path from the URL (everything after /api/notes/).
// Supports encoded slashes from OpenAPI clients (e.g. Books%2FDune.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// readBook reads and validates a book record from the request body. It
// writes the error response itself and reports whether decoding succeeded.
func readBook(w http.ResponseWriter, r *http.Request) (models.Book, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return models.Book{}, false
	}
	if !json.Valid(data) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return models.Book{}, false
	}
	book, err := models.DecodeBook(data)
	if err != nil {
		writeError(w, err, "decode book")
		return models.Book{}, false
	}
	return book, true
}

// Render handles POST /api/render.
//
//	@Summary		Render a book note without writing it
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Book	true	"Book metadata record"
//	@Success		200		{object}	Preview
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render [post]
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	book, ok := readBook(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Preview(r.Context(), book)
	if err != nil {
		writeError(w, err, "render")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a book note from a metadata record
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			force	query		bool		false	"Create even if the ISBN is already in the library"
//	@Param			body	body		models.Book	true	"Book metadata record"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	book, ok := readBook(w, r)
	if !ok {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), book, force)
	if err != nil {
		writeError(w, err, "create note", slog.String("title", book.Title))
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// InsertMetadata handles POST /api/notes/insert.
//
//	@Summary		Prepend rendered book metadata to an existing note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		InsertMetadataRequest	true	"Target note and book record"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/insert [post]
func (h *Handler) InsertMetadata(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req InsertMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || len(req.Book) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("path and book are required"))
		return
	}
	book, err := models.DecodeBook(req.Book)
	if err != nil {
		writeError(w, err, "decode book")
		return
	}
	note, err := h.svc.InsertMetadata(r.Context(), req.Path, book)
	if err != nil {
		writeError(w, err, "insert metadata", slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// ListBooks handles GET /api/notes.
//
//	@Summary		List book notes with pagination
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated, title, path)
//	@Success		200		{object}	BookListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListBooks(r.Context(), limit, offset, q.Get("sort"))
	if err != nil {
		writeError(w, err, "list books")
		return
	}
	writeJSON(w, http.StatusOK, BookListResponse{Books: items, Total: total})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note and its book metadata
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		writeError(w, err, "get note", slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/*.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			path	path	string	true	"Note path"
//	@Success		204		"Note deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteNote(r.Context(), path); err != nil {
		writeError(w, err, "delete note", slog.String("path", path))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across book notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err, "search", slog.String("query", q))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// FindByISBN handles GET /api/books/isbn/{isbn}.
//
//	@Summary		Look up the note for an ISBN
//	@Tags			search
//	@Produce		json
//	@Param			isbn	path		string	true	"ISBN-10 or ISBN-13"
//	@Success		200		{object}	index.BookRow
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/isbn/{isbn} [get]
func (h *Handler) FindByISBN(w http.ResponseWriter, r *http.Request) {
	isbn := models.NormalizeISBN(chi.URLParam(r, "isbn"))
	row, err := h.svc.FindByISBN(r.Context(), isbn)
	if err != nil {
		writeError(w, err, "find by isbn", slog.String("isbn", isbn))
		return
	}
	writeJSON(w, http.StatusOK, row)
}
