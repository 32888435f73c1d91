package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Store is the ordered, ISBN-unique collection of books.
// It is not safe for concurrent use; Service serializes access to it.
type Store struct {
	books []Book
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Find(isbn string) (Book, bool) {
	for _, b := range s.books {
		if b.ISBN == isbn {
			return b, true
		}
	}
	return Book{}, false
}

// Insert appends b, keeping insertion order.
func (s *Store) Insert(b Book) error {
	if _, ok := s.Find(b.ISBN); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateISBN, b.ISBN)
	}
	s.books = append(s.books, b)
	return nil
}

func (s *Store) RemoveByISBN(isbn string) (Book, bool) {
	for i, b := range s.books {
		if b.ISBN == isbn {
			s.books = slices.Delete(s.books, i, i+1)
			return b, true
		}
	}
	return Book{}, false
}

// List returns a copy of the books in insertion order.
func (s *Store) List() []Book {
	out := make([]Book, len(s.books))
	copy(out, s.books)
	return out
}

func (s *Store) Count() int {
	return len(s.books)
}

// Load replaces the collection with the snapshot held by repo.
// A missing snapshot yields an empty store and no error. An unreadable or
// malformed one also yields an empty store, with an error matching ErrLoadCorrupted.
func (s *Store) Load(ctx context.Context, repo SnapshotRepository) error {
	s.books = nil

	data, err := repo.Read(ctx)
	if errors.Is(err, ErrSnapshotNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read: %v", ErrLoadCorrupted, err)
	}

	books, err := decodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoadCorrupted, err)
	}
	s.books = books
	return nil
}

// Persist writes the whole collection to repo. The in-memory state is
// untouched whether or not the write succeeds.
func (s *Store) Persist(ctx context.Context, repo SnapshotRepository) error {
	data, err := encodeSnapshot(s.books)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistFailed, err)
	}
	if err := repo.Write(ctx, data); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return nil
}
