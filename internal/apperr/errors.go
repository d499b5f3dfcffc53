package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrCancelled     = errors.New("cancelled")
	ErrNoCandidates  = errors.New("no candidates")
	ErrInvalidRecord = errors.New("invalid record")
)

// Notice returns a one-line message suitable for showing to the user.
func Notice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return "Selection cancelled."
	case errors.Is(err, ErrNoCandidates):
		return "No books found."
	case errors.Is(err, ErrAlreadyExists):
		return "A note for this book already exists."
	case errors.Is(err, ErrNotFound):
		return "Note not found."
	case errors.Is(err, ErrInvalidRecord):
		return "Book metadata is invalid."
	}
	return "Something went wrong: " + err.Error()
}
