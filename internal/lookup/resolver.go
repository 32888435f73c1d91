package lookup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"booklibrary/internal/catalog"
	"booklibrary/internal/platform/openlibrary"

	"golang.org/x/sync/errgroup"
)

type OpenLibraryClient interface {
	GetEdition(ctx context.Context, isbn string) (*openlibrary.Edition, error)
	GetAuthor(ctx context.Context, authorKey string) (*openlibrary.AuthorDetails, error)
}

type Config struct {
	// MaxConcurrentAuthors bounds parallel author lookups for one book.
	MaxConcurrentAuthors int
}

// Resolver implements catalog.Resolver on top of Open Library: one edition
// lookup, then one lookup per referenced author.
//
// Only the edition lookup can fail the resolution. Author lookups that fail
// are logged and dropped; author names that were fetched are cached for the
// lifetime of the process.
type Resolver struct {
	client        OpenLibraryClient
	maxConcurrent int

	mu          sync.Mutex
	authorNames map[string]string
}

func NewResolver(client OpenLibraryClient, cfg Config) *Resolver {
	if cfg.MaxConcurrentAuthors <= 0 {
		cfg.MaxConcurrentAuthors = 4
	}
	return &Resolver{
		client:        client,
		maxConcurrent: cfg.MaxConcurrentAuthors,
		authorNames:   make(map[string]string),
	}
}

func (r *Resolver) Resolve(ctx context.Context, isbn string) (catalog.Metadata, error) {
	edition, err := r.client.GetEdition(ctx, isbn)
	if err != nil {
		return catalog.Metadata{}, lookupFailure(err)
	}

	title := catalog.UnknownTitle
	if edition.Title != nil && strings.TrimSpace(*edition.Title) != "" {
		title = strings.TrimSpace(*edition.Title)
	}

	author := catalog.UnknownAuthor
	if names := r.resolveAuthors(ctx, edition.Authors); len(names) > 0 {
		author = strings.Join(names, ", ")
	}

	return catalog.Metadata{Title: title, Author: author}, nil
}

// resolveAuthors returns the names that could be fetched, in reference order.
func (r *Resolver) resolveAuthors(ctx context.Context, refs []openlibrary.AuthorRef) []string {
	var keys []string
	for _, ref := range refs {
		if ref.Key != nil && strings.TrimSpace(*ref.Key) != "" {
			keys = append(keys, strings.TrimSpace(*ref.Key))
		}
	}
	if len(keys) == 0 {
		return nil
	}

	names := make([]string, len(keys))
	var g errgroup.Group
	g.SetLimit(r.maxConcurrent)
	for i, key := range keys {
		g.Go(func() error {
			names[i] = r.authorName(ctx, key)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// authorName returns "" when the lookup failed.
func (r *Resolver) authorName(ctx context.Context, key string) string {
	r.mu.Lock()
	name, ok := r.authorNames[key]
	r.mu.Unlock()
	if ok {
		return name
	}

	details, err := r.client.GetAuthor(ctx, key)
	if err != nil {
		log.Printf("lookup author failed key=%s: %v", key, err)
		return ""
	}

	name = catalog.UnknownAuthor
	if details.Name != nil && strings.TrimSpace(*details.Name) != "" {
		name = strings.TrimSpace(*details.Name)
	}

	r.mu.Lock()
	r.authorNames[key] = name
	r.mu.Unlock()
	return name
}

// lookupFailure tags a client error with the catalog failure kind while
// keeping the original error in the chain.
func lookupFailure(err error) error {
	switch {
	case errors.Is(err, openlibrary.ErrTimeout):
		return fmt.Errorf("%w: %w", catalog.ErrLookupTimeout, err)
	case errors.Is(err, openlibrary.ErrNetwork):
		return fmt.Errorf("%w: %w", catalog.ErrLookupNetwork, err)
	case errors.Is(err, openlibrary.ErrNotFound):
		return fmt.Errorf("%w: %w", catalog.ErrLookupNotFound, err)
	default:
		return fmt.Errorf("%w: %w", catalog.ErrLookupUpstream, err)
	}
}
