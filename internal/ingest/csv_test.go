package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReadFiltersUnreadRows(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"Title,Authors,Read Status,Last Date Read,ISBN/UID,Format",
		"Dune,Frank Herbert,read,2021-03-14,978-0-441-17271-9,paperback",
		"Hyperion,Dan Simmons,to-read,,,",
		"Emma,Jane Austen,finished,2020/07/01,,hardcover",
	}, "\n")

	got, err := NewReader(zap.NewNop()).Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "book_0", got[0].ID)
	require.Equal(t, "Dune", got[0].Title)
	require.Equal(t, "Frank Herbert", got[0].Authors)
	require.Equal(t, 2021, got[0].YearRead)
	require.Equal(t, "2021-03-14", got[0].DateRead)
	require.Equal(t, "9780441172719", got[0].ISBN)
	require.Equal(t, "paperback", got[0].Format)

	// IDs track the raw row index, so the skipped row leaves a gap.
	require.Equal(t, "book_2", got[1].ID)
	require.Equal(t, 2020, got[1].YearRead)
	require.Equal(t, "2020-07-01", got[1].DateRead)
	require.Empty(t, got[1].ISBN)
}

func TestReadResolvesColumnAliases(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"Book Title,Author,Exclusive Shelf,Date Finished,ISBN13,Binding",
		"Ubik,Philip K. Dick,read,\"January 5, 2022\",9780547572290,mass market",
	}, "\n")

	got, err := NewReader(zap.NewNop()).Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Ubik", got[0].Title)
	require.Equal(t, "Philip K. Dick", got[0].Authors)
	require.Equal(t, 2022, got[0].YearRead)
	require.Equal(t, "2022-01-05", got[0].DateRead)
	require.Equal(t, "9780547572290", got[0].ISBN)
}

func TestReadToleratesByteOrderMark(t *testing.T) {
	t.Parallel()

	input := "\ufeffTitle,Authors,Read Status,Last Date Read\n" +
		"Solaris,Stanislaw Lem,read,2019-08-20\n"

	got, err := NewReader(zap.NewNop()).Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Solaris", got[0].Title)
}

func TestReadFallsBackToDateRange(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"Title,Authors,Read Status,Last Date Read,Dates Read",
		"Piranesi,Susanna Clarke,read,,\"January 1, 2021 - February 2, 2021\"",
	}, "\n")

	got, err := NewReader(zap.NewNop()).Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 2021, got[0].YearRead)
	require.Equal(t, "2021-02-02", got[0].DateRead)
}

func TestReadSkipsRowsWithoutYear(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"Title,Authors,Read Status,Last Date Read",
		"Undated,Nobody,read,sometime last spring",
		"Dated,Somebody,read,2018-01-01",
	}, "\n")

	got, err := NewReader(zap.NewNop()).Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Dated", got[0].Title)
}

func TestReadEmptyInput(t *testing.T) {
	t.Parallel()

	_, err := NewReader(zap.NewNop()).Read(strings.NewReader(""))
	require.Error(t, err)
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in       string
		wantYear int
		wantDate string
	}{
		{"2021-03-14", 2021, "2021-03-14"},
		{"2021/03/14", 2021, "2021-03-14"},
		{"25/12/2021", 2021, "2021-12-25"},
		{"12/25/2021", 2021, "2021-12-25"},
		{"March 14, 2021", 2021, "2021-03-14"},
		{"2021", 2021, ""},
		{"read sometime in 2017, I think", 2017, ""},
		{"", 0, ""},
		{"not a date", 0, ""},
	}
	for _, tc := range cases {
		year, date := parseDate(tc.in)
		require.Equal(t, tc.wantYear, year, "input %q", tc.in)
		require.Equal(t, tc.wantDate, date, "input %q", tc.in)
	}
}

func TestCleanISBN(t *testing.T) {
	t.Parallel()

	require.Equal(t, "9780441172719", CleanISBN("978-0-441-17271-9"))
	require.Equal(t, "043942089X", CleanISBN("0-439-42089-x"))
	require.Empty(t, CleanISBN("12345"))
	require.Empty(t, CleanISBN(""))
	require.Empty(t, CleanISBN("no digits here"))
}
