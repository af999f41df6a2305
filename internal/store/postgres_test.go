package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestPostgresBackendGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM store_snapshots WHERE key=$1`)).
		WithArgs("cart:s1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow([]byte(`{"items":[]}`)))

	b := NewPostgresBackend(mock)
	data, err := b.Get(context.Background(), "cart:s1")
	require.NoError(t, err)
	require.JSONEq(t, `{"items":[]}`, string(data))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendGetMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM store_snapshots WHERE key=$1`)).
		WithArgs("cart:none").
		WillReturnError(pgx.ErrNoRows)

	b := NewPostgresBackend(mock)
	_, err = b.Get(context.Background(), "cart:none")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendPutAndDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO store_snapshots(key, data)`)).
		WithArgs("wishlist:s1", []byte(`{"items":[]}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM store_snapshots WHERE key=$1`)).
		WithArgs("wishlist:s1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	b := NewPostgresBackend(mock)
	ctx := context.Background()
	require.NoError(t, b.Put(ctx, "wishlist:s1", []byte(`{"items":[]}`)))
	require.NoError(t, b.Delete(ctx, "wishlist:s1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendPutError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO store_snapshots(key, data)`)).
		WithArgs("cart:s1", pgxmock.AnyArg()).
		WillReturnError(boom)

	b := NewPostgresBackend(mock)
	err = b.Put(context.Background(), "cart:s1", []byte(`{}`))
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
