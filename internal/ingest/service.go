package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"booklibrary/internal/catalog"
)

// Adder is the catalog operation an import drives.
type Adder interface {
	AddByISBN(ctx context.Context, isbn string) (catalog.Book, error)
}

type Service struct {
	catalog Adder
}

func NewService(c Adder) *Service {
	return &Service{catalog: c}
}

// ReadISBNs returns one ISBN per non-empty line. Lines starting with # are
// skipped and repeated ISBNs are kept once, in first-seen order.
func ReadISBNs(r io.Reader) ([]string, error) {
	var isbns []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		isbns = append(isbns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read isbn list: %w", err)
	}
	return isbns, nil
}

// Run adds each ISBN through the catalog. Lookup failures are recorded and
// the import moves on; a cancelled ctx stops it before the next ISBN and
// the run is CANCELLED only if some ISBN was left unprocessed.
func (s *Service) Run(ctx context.Context, isbns []string) *Run {
	run := &Run{
		Requested: len(isbns),
		StartedAt: time.Now(),
	}
	stopped := false
	defer func() {
		run.FinishedAt = time.Now()
		switch {
		case stopped:
			run.Status = StatusCancelled
		case run.Failed > 0 || run.Unsaved > 0:
			run.Status = StatusPartial
		default:
			run.Status = StatusCompleted
		}
		log.Printf("ingest finished status=%s requested=%d added=%d skipped=%d failed=%d duration_ms=%d",
			run.Status, run.Requested, run.Added, run.Skipped, run.Failed, run.FinishedAt.Sub(run.StartedAt).Milliseconds())
	}()

	for _, isbn := range isbns {
		if ctx.Err() != nil {
			stopped = true
			return run
		}

		_, err := s.catalog.AddByISBN(ctx, isbn)
		switch {
		case err == nil:
			run.Added++
		case errors.Is(err, catalog.ErrAlreadyExists):
			run.Skipped++
		case errors.Is(err, catalog.ErrPersistFailed):
			run.Added++
			run.Unsaved++
		default:
			run.Failed++
			run.Failures = append(run.Failures, Failure{ISBN: isbn, Err: err})
			log.Printf("ingest isbn failed isbn=%s: %v", isbn, err)
		}
	}
	return run
}
