package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepo stores one snapshot row per catalog name in catalog_snapshots.
type PostgresRepo struct {
	db      *pgxpool.Pool
	name    string
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, name string, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, name: name, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) Read(ctx context.Context) ([]byte, error) {
	const query = `
		SELECT data
		FROM catalog_snapshots
		WHERE name = $1
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var data []byte
	err := r.db.QueryRow(timeoutCtx, query, r.name).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("read snapshot %s: %w", r.name, err)
	}
	return data, nil
}

func (r *PostgresRepo) Write(ctx context.Context, data []byte) error {
	const sql = `
		INSERT INTO catalog_snapshots (name, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = now()`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Exec(timeoutCtx, sql, r.name, data); err != nil {
		return fmt.Errorf("write snapshot %s: %w", r.name, err)
	}
	return nil
}
