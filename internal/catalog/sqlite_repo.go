package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS catalog_snapshots (
		name       TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

// SQLiteRepo stores snapshots in a local SQLite database, one row per catalog name.
type SQLiteRepo struct {
	db   *sql.DB
	name string
}

// OpenSQLiteRepo opens (creating if needed) the database at path.
func OpenSQLiteRepo(ctx context.Context, path, name string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteRepo{db: db, name: name}, nil
}

func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepo) Read(ctx context.Context) ([]byte, error) {
	var data string
	err := r.db.QueryRowContext(ctx, "SELECT data FROM catalog_snapshots WHERE name = ?", r.name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return []byte(data), nil
}

func (r *SQLiteRepo) Write(ctx context.Context, data []byte) error {
	const query = `
		INSERT INTO catalog_snapshots (name, data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query, r.name, string(data)); err != nil {
		return fmt.Errorf("write snapshot %s: %w", r.name, err)
	}
	return nil
}
