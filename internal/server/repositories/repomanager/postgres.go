package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/polvault/internal/dbx"
	"github.com/dmitrijs2005/polvault/internal/server/migrations"
	"github.com/dmitrijs2005/polvault/internal/server/repositories/records"
	"github.com/dmitrijs2005/polvault/internal/server/repositories/revocations"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresRepositoryManager stores the record and the revocation snapshot
// in two single-row tables.
type PostgresRepositoryManager struct {
	db *sql.DB
}

func NewPostgresRepositoryManager(db *sql.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{db: db}
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// OpenPostgres connects with the pgx stdlib driver and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepositoryManager, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	m := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}

func (m *PostgresRepositoryManager) Backend() string { return "postgres" }

func (m *PostgresRepositoryManager) Records() records.Repository {
	return records.NewPostgresRepository(m.db)
}

func (m *PostgresRepositoryManager) Revocations() revocations.Repository {
	return revocations.NewPostgresRepository(m.db)
}

// Purge deletes both rows in one transaction.
func (m *PostgresRepositoryManager) Purge(ctx context.Context) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := records.NewPostgresRepository(tx).Delete(ctx); err != nil {
			return err
		}
		return revocations.NewPostgresRepository(tx).Delete(ctx)
	})
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

// migrate is a seam for tests.
var migrate = dbx.Migrate

// RunMigrations applies the embedded migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	return migrate(ctx, m.db, "pgx", migrations.Migrations)
}
