package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

func withGoose(databaseURL string, fn func(db *sql.DB) error) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open database for migrations: %w", err)
	}
	defer db.Close()

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn(db)
}

// Migrate applies all pending migrations.
func Migrate(ctx context.Context, databaseURL string) error {
	return withGoose(databaseURL, func(db *sql.DB) error {
		if err := goose.UpContext(ctx, db, "migrations"); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	})
}

// MigrateDown rolls every migration back. Used by tests and `attecctl migrate down`.
func MigrateDown(ctx context.Context, databaseURL string) error {
	return withGoose(databaseURL, func(db *sql.DB) error {
		if err := goose.ResetContext(ctx, db, "migrations"); err != nil {
			return fmt.Errorf("reset migrations: %w", err)
		}
		return nil
	})
}

// MigrationVersion returns the current schema version.
func MigrationVersion(ctx context.Context, databaseURL string) (int64, error) {
	var version int64
	err := withGoose(databaseURL, func(db *sql.DB) error {
		v, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("get schema version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}
