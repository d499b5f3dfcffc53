package index

// BookIndex defines the library index operations used by the note service.
type BookIndex interface {
	UpsertBook(b BookRow, body string) error
	DeleteBook(path string) error
	GetChecksum(path string) (string, error)
	GetBook(path string) (*BookRow, error)
	FindByISBN(isbn string) (*BookRow, error)
	ListBooks(limit, offset int, sort string) ([]BookRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies BookIndex at compile time.
var _ BookIndex = (*DB)(nil)
