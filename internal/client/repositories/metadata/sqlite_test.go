package metadata

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/polvault/internal/client/migrations"
	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/dmitrijs2005/polvault/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// migratedDB returns a file-backed database with the real client schema.
func migratedDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, dbx.Migrate(context.Background(), db, "sqlite3", migrations.Migrations))
	return db
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(migratedDB(t))

	_, err := repo.Get(ctx, "gate_salt")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, repo.Set(ctx, "gate_salt", []byte{0xde, 0xad}))
	require.NoError(t, repo.Set(ctx, "gate_verifier", []byte("v1")))
	require.NoError(t, repo.Set(ctx, "gate_verifier", []byte("v2")))

	got, err := repo.Get(ctx, "gate_verifier")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{
		"gate_salt":     {0xde, 0xad},
		"gate_verifier": []byte("v2"),
	}, all)

	require.NoError(t, repo.Delete(ctx, "gate_salt"))
	require.NoError(t, repo.Delete(ctx, "gate_salt"), "deleting a missing key")
	_, err = repo.Get(ctx, "gate_salt")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, repo.Clear(ctx))
	all, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLiteRepository_InTransaction(t *testing.T) {
	ctx := context.Background()
	db := migratedDB(t)

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := NewSQLiteRepository(tx)
		if err := r.Set(ctx, "remembered_session", []byte(`{}`)); err != nil {
			return err
		}
		return r.Set(ctx, "security_policy", []byte(`{}`))
	})
	require.NoError(t, err)

	all, err := NewSQLiteRepository(db).List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLiteRepository_ClosedDB(t *testing.T) {
	ctx := context.Background()
	db := migratedDB(t)
	repo := NewSQLiteRepository(db)
	require.NoError(t, db.Close())

	_, err := repo.Get(ctx, "k")
	assert.ErrorContains(t, err, `metadata get "k"`)
	assert.NotErrorIs(t, err, common.ErrorNotFound)

	assert.ErrorContains(t, repo.Set(ctx, "k", []byte{1}), `metadata set "k"`)
	assert.ErrorContains(t, repo.Delete(ctx, "k"), `metadata delete "k"`)
	assert.ErrorContains(t, repo.Clear(ctx), "metadata clear")

	_, err = repo.List(ctx)
	assert.ErrorContains(t, err, "metadata list")
}
