// Package localdb opens the device-local SQLite database and applies schema
// migrations. The local store holds the pending-operation queue and a small
// key/value area for cached session state; it must survive process restart.
package localdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/mpetrovs/tabchat/internal/client/localdb/migrations"
)

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the local database at dsn and brings the
// schema up to date.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening local db: %w", err)
	}

	// modernc sqlite does not tolerate concurrent writers on one handle.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating local db: %w", err)
	}
	return db, nil
}
