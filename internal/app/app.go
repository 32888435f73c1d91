// Package app assembles the catalog from configuration: snapshot backend,
// Open Library client, resolver and service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"booklibrary/internal/catalog"
	"booklibrary/internal/config"
	"booklibrary/internal/lookup"
	"booklibrary/internal/platform/openlibrary"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

type App struct {
	Service *catalog.Service
	// DB is nil unless the postgres backend is in use.
	DB *pgxpool.Pool
	// LoadErr matches catalog.ErrLoadCorrupted when the stored snapshot
	// could not be read and the catalog started empty.
	LoadErr error
	// Backup is where a copy of an unreadable library file was saved.
	Backup string

	closers []func()
}

// Open builds the catalog. A corrupted snapshot leaves the catalog empty
// and is reported through LoadErr; only backend setup failures are returned.
func Open(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{}
	repo, err := a.openRepo(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	client := openlibrary.NewClient(openlibrary.Config{
		BaseURL:       cfg.OpenLibraryBaseURL,
		UserAgent:     cfg.UserAgent,
		BookTimeout:   cfg.BookTimeout,
		AuthorTimeout: cfg.AuthorTimeout,
		RPS:           cfg.OpenLibraryRPS,
	})
	resolver := lookup.NewResolver(client, lookup.Config{})

	svc, err := catalog.Open(ctx, resolver, repo)
	if err != nil && !errors.Is(err, catalog.ErrLoadCorrupted) {
		a.Close()
		return nil, err
	}
	a.Service = svc
	if err != nil {
		a.LoadErr = err
		if cfg.SnapshotBackend != config.BackendPostgres && cfg.SnapshotBackend != config.BackendSQLite {
			a.Backup = backupFile(cfg.LibraryFile)
		}
	}
	return a, nil
}

// backupFile copies an unreadable library file aside so the next save does
// not destroy it. It returns the copy's path, or "" if nothing was copied.
func backupFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	dst := path + ".corrupt"
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		log.Printf("catalog backup failed: path=%s error=%v", dst, err)
		return ""
	}
	log.Printf("catalog backup written: path=%s", dst)
	return dst
}

func (a *App) openRepo(ctx context.Context, cfg config.Config) (catalog.SnapshotRepository, error) {
	switch cfg.SnapshotBackend {
	case config.BackendPostgres:
		pool, err := OpenDB(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		a.DB = pool
		a.closers = append(a.closers, pool.Close)
		log.Printf("catalog backend=postgres name=%s", cfg.CatalogName)
		return catalog.NewPostgresRepo(pool, cfg.CatalogName, dbTimeout), nil
	case config.BackendSQLite:
		repo, err := catalog.OpenSQLiteRepo(ctx, cfg.SQLitePath, cfg.CatalogName)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		a.closers = append(a.closers, func() { repo.Close() })
		log.Printf("catalog backend=sqlite path=%s name=%s", cfg.SQLitePath, cfg.CatalogName)
		return repo, nil
	default:
		log.Printf("catalog backend=file path=%s", cfg.LibraryFile)
		return catalog.NewFileRepo(cfg.LibraryFile), nil
	}
}

// Ping reports whether the snapshot backend is reachable.
func (a *App) Ping(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return a.DB.Ping(ctx)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// OpenDB opens and pings a pgx pool.
func OpenDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping database (%s): %w", RedactDSN(dsn), err)
	}
	log.Println("database connection OK")
	return pool, nil
}

// RedactDSN hides the credentials part of a URL-style DSN.
func RedactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
