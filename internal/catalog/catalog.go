package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a required field is empty after trimming.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyExists is returned when the ISBN is already in the catalog.
	ErrAlreadyExists = errors.New("book already exists")
	// ErrNotFound is returned when no book has the requested ISBN.
	ErrNotFound = errors.New("book not found")
	// ErrDuplicateISBN is returned by Store.Insert when the ISBN is taken.
	ErrDuplicateISBN = errors.New("duplicate isbn")
	// ErrResolutionFailed wraps any failure of the external lookup.
	ErrResolutionFailed = errors.New("isbn resolution failed")
	// ErrLoadCorrupted reports a snapshot that could not be decoded.
	// The store is left empty when it is returned.
	ErrLoadCorrupted = errors.New("snapshot corrupted")
	// ErrPersistFailed reports a snapshot write failure. The in-memory
	// catalog keeps the mutation that triggered the write.
	ErrPersistFailed = errors.New("snapshot persist failed")
	// ErrSnapshotNotFound is returned by a SnapshotRepository that holds no snapshot yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// Lookup failure kinds a Resolver reports. Callers of AddByISBN see them
// wrapped in ErrResolutionFailed.
var (
	ErrLookupTimeout  = errors.New("lookup timed out")
	ErrLookupNetwork  = errors.New("lookup network error")
	ErrLookupNotFound = errors.New("isbn not found upstream")
	ErrLookupUpstream = errors.New("lookup upstream error")
)

const (
	UnknownTitle  = "Unknown Title"
	UnknownAuthor = "Unknown Author"
)

// Book is a single catalog entry. Two books are the same entry when their ISBNs match.
type Book struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

func (b Book) String() string {
	return fmt.Sprintf("%s by %s (ISBN: %s)", b.Title, b.Author, b.ISBN)
}

// Metadata is what a Resolver learns about an ISBN. The caller attaches the ISBN.
type Metadata struct {
	Title  string
	Author string
}

type AuthorCount struct {
	Name      string `json:"name"`
	BookCount int    `json:"book_count"`
}

type Stats struct {
	TotalBooks    int           `json:"total_books"`
	UniqueAuthors int           `json:"unique_authors"`
	TopAuthors    []AuthorCount `json:"top_authors"`
}
