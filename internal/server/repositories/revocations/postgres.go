package revocations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/dmitrijs2005/polvault/internal/dbx"
	"github.com/dmitrijs2005/polvault/internal/server/models"
)

// PostgresRepository stores the snapshot as a JSON array in vault_sessions.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Load(ctx context.Context) (*models.SessionsSnapshot, error) {
	query := `
		SELECT tokens, ts
		FROM vault_sessions
		WHERE id = 1
	`
	var raw string
	snap := &models.SessionsSnapshot{}
	if err := r.db.QueryRowContext(ctx, query).Scan(&raw, &snap.Timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &snap.Sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return snap, nil
}

func (r *PostgresRepository) Save(ctx context.Context, snap *models.SessionsSnapshot) error {
	tokens := snap.Sessions
	if tokens == nil {
		tokens = []string{}
	}
	raw, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}

	query := `
		INSERT INTO vault_sessions (id, tokens, ts)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE
		SET tokens = EXCLUDED.tokens, ts = EXCLUDED.ts
	`
	if _, err := r.db.ExecContext(ctx, query, string(raw), snap.Timestamp); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM vault_sessions`); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
