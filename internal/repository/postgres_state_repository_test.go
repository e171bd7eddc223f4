package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/nesiel/class-bank/pkg/errors"
)

func newStateRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestPostgresStateRepositoryGet(t *testing.T) {
	db, mock, cleanup := newStateRepoMock(t)
	defer cleanup()

	repo := NewPostgresStateRepository(db)
	rows := sqlmock.NewRows([]string{"key", "value", "updated_at"}).
		AddRow("class:db", []byte(`{}`), time.Now())
	mock.ExpectQuery("SELECT key, value, updated_at FROM app_state").
		WithArgs("class:db").
		WillReturnRows(rows)

	value, err := repo.Get(context.Background(), "class:db")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(value))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStateRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newStateRepoMock(t)
	defer cleanup()

	repo := NewPostgresStateRepository(db)
	mock.ExpectQuery("SELECT key, value, updated_at FROM app_state").
		WithArgs("class:db").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "class:db")
	assert.ErrorIs(t, err, appErrors.ErrStateNotFound)
}

func TestPostgresStateRepositoryPut(t *testing.T) {
	db, mock, cleanup := newStateRepoMock(t)
	defer cleanup()

	repo := NewPostgresStateRepository(db)
	mock.ExpectExec("INSERT INTO app_state").
		WithArgs("class:config", []byte(`{"theme":"dark"}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Put(context.Background(), "class:config", []byte(`{"theme":"dark"}`)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStateRepositoryPutMany(t *testing.T) {
	db, mock, cleanup := newStateRepoMock(t)
	defer cleanup()

	repo := NewPostgresStateRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO app_state").
		WithArgs("class:config", []byte(`{}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO app_state").
		WithArgs("class:db", []byte(`{"a":{}}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.PutMany(context.Background(), map[string][]byte{
		"class:db":     []byte(`{"a":{}}`),
		"class:config": []byte(`{}`),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStateRepositoryPutManyRollsBack(t *testing.T) {
	db, mock, cleanup := newStateRepoMock(t)
	defer cleanup()

	repo := NewPostgresStateRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO app_state").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.PutMany(context.Background(), map[string][]byte{"class:db": []byte(`{}`)})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStateRepositoryEnsureSchema(t *testing.T) {
	db, mock, cleanup := newStateRepoMock(t)
	defer cleanup()

	repo := NewPostgresStateRepository(db)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS app_state").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
}
