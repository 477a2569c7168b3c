package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/polvault/internal/client/migrations"
	"github.com/dmitrijs2005/polvault/internal/dbx"

	_ "modernc.org/sqlite"
)

// RunMigrations brings the local metadata schema up to date.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return dbx.Migrate(ctx, db, "sqlite3", migrations.Migrations)
}

// InitDatabase opens the local SQLite database at dsn and migrates it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open local db: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate local db: %w", err)
	}

	return db, nil
}
