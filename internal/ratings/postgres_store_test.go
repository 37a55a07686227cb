package ratings

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreSetUpsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPostgresStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO ratings").
		WithArgs("book_3", "yes").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM ratings`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	total, err := store.Set(context.Background(), "book_3", RatingYes)
	require.NoError(t, err)
	require.Equal(t, 7, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSetValidatesBeforeTouchingPool(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPostgresStoreWithPool(mock)
	require.NoError(t, err)

	_, err = store.Set(context.Background(), "book_3", Rating("meh"))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreAll(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPostgresStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT book_id, rating FROM ratings").
		WillReturnRows(pgxmock.NewRows([]string{"book_id", "rating"}).
			AddRow("book_0", "yes").
			AddRow("book_1", "skip"))

	all, err := store.All(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]Rating{"book_0": RatingYes, "book_1": RatingSkip}, all)
	require.NoError(t, mock.ExpectationsWereMet())
}
