package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"booklibrary/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, version, reset, create")
		name    = flag.String("name", "", "Name for 'create' command")
		dir     = flag.String("dir", "", "Migrations directory (default $MIGRATIONS_DIR or db/migrations)")
	)
	flag.Parse()

	config.LoadEnvFiles()
	cfg := config.Load()

	migrations := *dir
	if migrations == "" {
		migrations = migrationsDir()
	}

	if *command == "create" {
		if *name == "" {
			log.Fatal("Name is required for 'create' command")
		}
		if err := goose.Create(nil, migrations, *name, "sql"); err != nil {
			log.Fatalf("Failed to create migration: %v", err)
		}
		fmt.Printf("Migration created: %s\n", *name)
		return
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Failed to set dialect: %v", err)
	}

	if err := run(ctx, *command, db, migrations); err != nil {
		log.Fatalf("migrate %s: %v", *command, err)
	}
}
