package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/booknote/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Rendering without side effects.
	r.Post("/render", h.Render)

	// Book notes.
	r.Get("/notes", h.ListBooks)
	r.Post("/notes", h.CreateNote)
	r.Post("/notes/insert", h.InsertMetadata)
	r.Get("/notes/*", h.GetNote)
	r.Delete("/notes/*", h.DeleteNote)

	// Library lookups.
	r.Get("/search", h.Search)
	r.Get("/books/isbn/{isbn}", h.FindByISBN)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
