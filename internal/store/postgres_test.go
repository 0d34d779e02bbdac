package store

import (
	"context"
	"errors"
	"testing"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st := NewPostgres(mock)
	ctx := context.Background()

	mock.ExpectQuery("SELECT value FROM kv_entries").WithArgs("alice-Roberto-2024-06-12").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("14h"))
	v, ok, err := st.Get(ctx, "alice-Roberto-2024-06-12")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "14h", v)

	mock.ExpectQuery("SELECT value FROM kv_entries").WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	_, ok, err = st.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectExec("INSERT INTO kv_entries").WithArgs("k", "v").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	stored, err := st.SetNX(ctx, "k", "v")
	require.NoError(t, err)
	assert.True(t, stored)

	mock.ExpectExec("INSERT INTO kv_entries").WithArgs("k", "w").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	stored, err = st.SetNX(ctx, "k", "w")
	require.NoError(t, err)
	assert.False(t, stored)

	mock.ExpectExec("INSERT INTO kv_entries").WithArgs("username", "alice").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, st.Set(ctx, "username", "alice"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUnavailable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st := NewPostgres(mock)
	boom := errors.New("connection refused")

	mock.ExpectQuery("SELECT value FROM kv_entries").WithArgs("k").WillReturnError(boom)
	_, _, err = st.Get(context.Background(), "k")
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.True(t, errors.Is(err, boom))

	mock.ExpectExec("INSERT INTO kv_entries").WithArgs("k", "v").WillReturnError(boom)
	_, err = st.SetNX(context.Background(), "k", "v")
	assert.True(t, errors.Is(err, ErrUnavailable))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv_entries").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	require.NoError(t, NewPostgres(mock).Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
