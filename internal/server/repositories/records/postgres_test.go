package records

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/dmitrijs2005/polvault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestPostgres_Exists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+EXISTS\s*\(SELECT 1 FROM vault_record WHERE id = 1\)$`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Exists_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+EXISTS`).WillReturnError(errors.New("db down"))

	_, err := repo.Exists(context.Background())
	require.ErrorContains(t, err, "db down")
}

func TestPostgres_Load(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*SELECT\s+data,\s*ts,\s*version\s+FROM\s+vault_record\s+WHERE\s+id\s*=\s*1\s*$`
	mock.ExpectQuery(q).
		WillReturnRows(sqlmock.NewRows([]string{"data", "ts", "version"}).AddRow("blob", int64(42), "2.0.0"))

	env, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.RecordEnvelope{Data: "blob", Timestamp: 42, Version: "2.0.0"}, env)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Load_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+vault_record`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgres_Save_Upserts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+vault_record\s+\(id,\s*data,\s*ts,\s*version\)\s+VALUES\s+\(1,\s*\$1,\s*\$2,\s*\$3\)\s+ON\s+CONFLICT\s+\(id\)\s+DO\s+UPDATE.*$`
	mock.ExpectExec(q).
		WithArgs("blob", int64(7), "2.0.0").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(context.Background(), &models.RecordEnvelope{Data: "blob", Timestamp: 7, Version: "2.0.0"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Save_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+vault_record`).WillReturnError(errors.New("db down"))

	err := repo.Save(context.Background(), &models.RecordEnvelope{})
	require.ErrorContains(t, err, "error performing sql request")
}

func TestPostgres_Delete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE FROM vault_record$`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
