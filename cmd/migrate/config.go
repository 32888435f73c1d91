package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
)

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return "db/migrations"
}

func run(ctx context.Context, command string, db *sql.DB, dir string) error {
	switch command {
	case "up":
		if err := goose.UpContext(ctx, db, dir); err != nil {
			return err
		}
		fmt.Println("Migrations applied successfully")
	case "down":
		if err := goose.DownContext(ctx, db, dir); err != nil {
			return err
		}
		fmt.Println("Migrations rolled back successfully")
	case "reset":
		if err := goose.ResetContext(ctx, db, dir); err != nil {
			return err
		}
		fmt.Println("All migrations rolled back")
	case "status":
		return goose.StatusContext(ctx, db, dir)
	case "version":
		return goose.VersionContext(ctx, db, dir)
	default:
		return fmt.Errorf("unknown command %q (use: up, down, status, version, reset, create)", command)
	}
	return nil
}
