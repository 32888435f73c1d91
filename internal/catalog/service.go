package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
)

// Service is the only entry point that mutates the catalog.
//
// Mutating calls are serialized by writeMu for their whole duration,
// including the external lookup, so uniqueness checks and inserts cannot
// interleave. Readers only wait for the short store mutation and persist.
type Service struct {
	writeMu  sync.Mutex
	mu       sync.RWMutex
	store    *Store
	resolver Resolver
	repo     SnapshotRepository
}

func NewService(store *Store, resolver Resolver, repo SnapshotRepository) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		repo:     repo,
	}
}

// Open builds a Service over a store loaded from repo. It always returns a
// usable Service; a non-nil error matches ErrLoadCorrupted and means the
// catalog started empty.
func Open(ctx context.Context, resolver Resolver, repo SnapshotRepository) (*Service, error) {
	store := NewStore()
	err := store.Load(ctx, repo)
	if err != nil {
		log.Printf("catalog load failed, starting empty: %v", err)
	} else {
		log.Printf("catalog loaded count=%d", store.Count())
	}
	return NewService(store, resolver, repo), err
}

// AddByISBN resolves isbn through the Resolver and adds the result.
//
// When the book was added but could not be persisted, the book is returned
// together with an error matching ErrPersistFailed.
func (s *Service) AddByISBN(ctx context.Context, isbn string) (Book, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return Book{}, fmt.Errorf("%w: isbn is required", ErrInvalidInput)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, ok := s.Find(isbn); ok {
		return Book{}, fmt.Errorf("%w: %s", ErrAlreadyExists, isbn)
	}

	meta, err := s.resolver.Resolve(ctx, isbn)
	if err != nil {
		log.Printf("catalog resolve failed isbn=%s: %v", isbn, err)
		return Book{}, fmt.Errorf("%w: %s: %w", ErrResolutionFailed, isbn, err)
	}

	return s.insert(ctx, Book{Title: meta.Title, Author: meta.Author, ISBN: isbn})
}

// AddManual adds a book without consulting the Resolver.
// Persist failures are reported as in AddByISBN.
func (s *Service) AddManual(ctx context.Context, title, author, isbn string) (Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	isbn = strings.TrimSpace(isbn)

	switch {
	case title == "":
		return Book{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	case author == "":
		return Book{}, fmt.Errorf("%w: author is required", ErrInvalidInput)
	case isbn == "":
		return Book{}, fmt.Errorf("%w: isbn is required", ErrInvalidInput)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.insert(ctx, Book{Title: title, Author: author, ISBN: isbn})
}

// Remove deletes the book with the given ISBN and returns it.
// Persist failures are reported as in AddByISBN.
func (s *Service) Remove(ctx context.Context, isbn string) (Book, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return Book{}, fmt.Errorf("%w: isbn is required", ErrInvalidInput)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed, ok := s.store.RemoveByISBN(isbn)
	if !ok {
		return Book{}, fmt.Errorf("%w: %s", ErrNotFound, isbn)
	}
	if err := s.persistLocked(ctx); err != nil {
		return removed, err
	}
	log.Printf("catalog removed isbn=%s", isbn)
	return removed, nil
}

func (s *Service) Find(isbn string) (Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Find(strings.TrimSpace(isbn))
}

func (s *Service) List() []Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.List()
}

func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Count()
}

// Stats counts books per author string. TopAuthors is ordered by book count,
// most first, ties keeping first-appearance order; limit <= 0 keeps all.
func (s *Service) Stats(limit int) Stats {
	books := s.List()

	counts := make(map[string]int)
	var order []string
	for _, b := range books {
		if _, ok := counts[b.Author]; !ok {
			order = append(order, b.Author)
		}
		counts[b.Author]++
	}

	top := make([]AuthorCount, 0, len(order))
	for _, name := range order {
		top = append(top, AuthorCount{Name: name, BookCount: counts[name]})
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].BookCount > top[j].BookCount
	})
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}

	return Stats{
		TotalBooks:    len(books),
		UniqueAuthors: len(order),
		TopAuthors:    top,
	}
}

// insert must be called with writeMu held.
func (s *Service) insert(ctx context.Context, b Book) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Insert(b); err != nil {
		if errors.Is(err, ErrDuplicateISBN) {
			return Book{}, fmt.Errorf("%w: %s", ErrAlreadyExists, b.ISBN)
		}
		return Book{}, err
	}
	if err := s.persistLocked(ctx); err != nil {
		return b, err
	}
	log.Printf("catalog added isbn=%s title=%q author=%q", b.ISBN, b.Title, b.Author)
	return b, nil
}

func (s *Service) persistLocked(ctx context.Context) error {
	// The mutation is already applied; a cancelled caller must not abort the write.
	if err := s.store.Persist(context.WithoutCancel(ctx), s.repo); err != nil {
		log.Printf("catalog persist failed count=%d: %v", s.store.Count(), err)
		return err
	}
	return nil
}
