package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/dmitrijs2005/polvault/internal/dbx"
	"github.com/dmitrijs2005/polvault/internal/server/models"
)

// PostgresRepository keeps the envelope in the one-row vault_record table.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Exists(ctx context.Context) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM vault_record WHERE id = 1)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) Load(ctx context.Context) (*models.RecordEnvelope, error) {
	query := `
		SELECT data, ts, version
		FROM vault_record
		WHERE id = 1
	`
	env := &models.RecordEnvelope{}
	if err := r.db.QueryRowContext(ctx, query).Scan(&env.Data, &env.Timestamp, &env.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return env, nil
}

func (r *PostgresRepository) Save(ctx context.Context, env *models.RecordEnvelope) error {
	query := `
		INSERT INTO vault_record (id, data, ts, version)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data, ts = EXCLUDED.ts, version = EXCLUDED.version
	`
	if _, err := r.db.ExecContext(ctx, query, env.Data, env.Timestamp, env.Version); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM vault_record`); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
