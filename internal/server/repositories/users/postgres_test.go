package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	qInsert = `(?s)^\s*INSERT\s+INTO\s+users\s*\(username,\s*password_hash\)\s*VALUES\s*\(\$1,\s*\$2\)\s*RETURNING\s+id,\s*created_at\s*$`
	qSelect = `(?s)^\s*SELECT\s+id,\s*username,\s*password_hash,\s*refresh_token,\s*created_at\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s*$`
	qUpdate = `(?s)^\s*UPDATE\s+users\s+SET\s+refresh_token\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s*$`
	qSwap   = `(?s)^\s*UPDATE\s+users\s+SET\s+refresh_token\s*=\s*\$3\s+WHERE\s+id\s*=\s*\$1\s+AND\s+refresh_token\s*=\s*\$2\s*$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestPostgresCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(qInsert).
		WithArgs("alice", []byte("hash")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("u-1", created))

	got, err := repo.Create(context.Background(), &models.User{UserName: "alice", PasswordHash: []byte("hash")})
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, "alice", got.UserName)
	assert.True(t, got.CreatedAt.Equal(created))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreate_UniqueViolation(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qInsert).
		WithArgs("alice", []byte("hash")).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.Create(context.Background(), &models.User{UserName: "alice", PasswordHash: []byte("hash")})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestPostgresCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qInsert).
		WithArgs("alice", []byte("hash")).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{UserName: "alice", PasswordHash: []byte("hash")})
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
	assert.NotErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestPostgresGetUserByLogin_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "refresh_token", "created_at"}).
		AddRow("u-1", "alice", []byte("hash"), "r1", time.Now())
	mock.ExpectQuery(qSelect).WithArgs("alice").WillReturnRows(rows)

	got, err := repo.GetUserByLogin(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, []byte("hash"), got.PasswordHash)
	assert.Equal(t, "r1", got.RefreshToken)
}

func TestPostgresGetUserByLogin_NullRefreshToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "refresh_token", "created_at"}).
		AddRow("u-1", "alice", []byte("hash"), nil, time.Now())
	mock.ExpectQuery(qSelect).WithArgs("alice").WillReturnRows(rows)

	got, err := repo.GetUserByLogin(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, got.RefreshToken)
}

func TestPostgresGetUserByLogin_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qSelect).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByLogin(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgresGetUserByLogin_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qSelect).WithArgs("alice").WillReturnError(errors.New("db err"))

	_, err := repo.GetUserByLogin(context.Background(), "alice")
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db err`, err.Error())
}

func TestPostgresUpdateRefreshToken(t *testing.T) {
	t.Run("sets token", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(qUpdate).WithArgs("u-1", "r1").WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateRefreshToken(context.Background(), "u-1", "r1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty token clears to NULL", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(qUpdate).WithArgs("u-1", nil).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateRefreshToken(context.Background(), "u-1", ""))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(qUpdate).WithArgs("u-x", "r1").WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateRefreshToken(context.Background(), "u-x", "r1")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(qUpdate).WithArgs("u-1", "r1").WillReturnError(errors.New("db down"))

		err := repo.UpdateRefreshToken(context.Background(), "u-1", "r1")
		require.Error(t, err)
		assert.Regexp(t, `db error: .*db down`, err.Error())
	})
}

func TestPostgresSwapRefreshToken(t *testing.T) {
	t.Run("current matches", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(qSwap).WithArgs("u-1", "r1", "r2").WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.SwapRefreshToken(context.Background(), "u-1", "r1", "r2")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("stale token", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(qSwap).WithArgs("u-1", "r0", "r2").WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.SwapRefreshToken(context.Background(), "u-1", "r0", "r2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(qSwap).WithArgs("u-1", "r1", "r2").WillReturnError(errors.New("db down"))

		ok, err := repo.SwapRefreshToken(context.Background(), "u-1", "r1", "r2")
		require.Error(t, err)
		assert.False(t, ok)
	})
}
