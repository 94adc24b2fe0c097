package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func openMigrationDB(dsn string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	return stdlib.OpenDB(*cfg), nil
}

func withGoose(dsn string, fn func(db *sql.DB) error) error {
	db, err := openMigrationDB(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return fn(db)
}

// MigrateUp applies every pending embedded migration.
func MigrateUp(ctx context.Context, dsn string) error {
	return withGoose(dsn, func(db *sql.DB) error {
		return goose.UpContext(ctx, db, "migrations")
	})
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(ctx context.Context, dsn string) error {
	return withGoose(dsn, func(db *sql.DB) error {
		return goose.DownContext(ctx, db, "migrations")
	})
}

func MigrateStatus(ctx context.Context, dsn string) error {
	return withGoose(dsn, func(db *sql.DB) error {
		return goose.StatusContext(ctx, db, "migrations")
	})
}
