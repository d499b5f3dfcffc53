package api

import (
	"encoding/json"

	"github.com/starford/booknote/internal/index"
	"github.com/starford/booknote/internal/noteservice"
)

// InsertMetadataRequest is the request body for prepending a book to a note.
type InsertMetadataRequest struct {
	Path string          `json:"path" example:"Reading/Dune.md" validate:"required"`
	Book json.RawMessage `json:"book" validate:"required"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// Preview is the response of POST /render.
type Preview = noteservice.Preview

// BookListItem is a lightweight item in a list response (aliased from the domain layer).
type BookListItem = noteservice.BookListItem

// BookListResponse wraps paginated book listings.
type BookListResponse struct {
	Books []BookListItem `json:"books" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}
