// Package ingest parses reading-history CSV exports into normalized records.
// Exports from different apps disagree on column names, so lookup runs
// through ordered alias lists.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/internal/books"
)

// Column aliases, in preference order. Matching is case-insensitive and
// ignores surrounding whitespace.
var (
	titleAliases  = []string{"title", "book title"}
	authorAliases = []string{"authors", "author", "author(s)"}
	statusAliases = []string{"read status", "status", "exclusive shelf"}
	dateAliases   = []string{"last date read", "date read", "dates read", "date finished"}
	isbnAliases   = []string{"isbn/uid", "isbn", "isbn13", "isbn-13"}
	formatAliases = []string{"format", "binding"}

	rangeAliases = []string{"dates read"}
)

// Reader parses a reading-history export stream.
type Reader struct {
	logger *zap.Logger
}

// NewReader constructs a Reader.
func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{logger: logger}
}

// Read parses the CSV stream and returns the finished-book records in file
// order. Rows that are not marked read, or whose read date yields no year,
// are dropped. Record IDs are derived from the raw row index so they stay
// stable across filter changes.
func (r *Reader) Read(src io.Reader) ([]*books.Book, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		// Exports written on Windows often lead with a byte-order mark.
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	r.logger.Debug("csv columns", zap.Strings("columns", header))

	var out []*books.Book
	for i := 0; ; i++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", i, err)
		}

		row := newRow(header, record)
		status := strings.ToLower(row.get(statusAliases))
		if status != "read" && status != "finished" {
			continue
		}

		title := strings.TrimSpace(row.get(titleAliases))
		year, fullDate := parseDate(row.get(dateAliases))
		if year == 0 {
			// A date-range cell like "Jan 1, 2021 - Feb 2, 2021" carries the
			// finish date in its last segment.
			if rangeCell := row.get(rangeAliases); rangeCell != "" {
				parts := strings.Split(rangeCell, "-")
				year, fullDate = parseDate(strings.TrimSpace(parts[len(parts)-1]))
			}
		}
		if year == 0 {
			r.logger.Warn("no read year found, skipping", zap.String("title", title))
			continue
		}

		out = append(out, &books.Book{
			ID:       fmt.Sprintf("book_%d", i),
			Title:    title,
			Authors:  strings.TrimSpace(row.get(authorAliases)),
			YearRead: year,
			DateRead: fullDate,
			ISBN:     CleanISBN(row.get(isbnAliases)),
			Format:   strings.TrimSpace(row.get(formatAliases)),
		})
	}
	return out, nil
}

// CleanISBN strips everything but digits and the X check character, then
// validates length. Anything that is not a 10- or 13-character code comes
// back empty.
func CleanISBN(raw string) string {
	var b strings.Builder
	for _, c := range raw {
		switch {
		case c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == 'x' || c == 'X':
			b.WriteRune('X')
		}
	}
	cleaned := b.String()
	if len(cleaned) == 10 || len(cleaned) == 13 {
		return cleaned
	}
	return ""
}

// row pairs a header with one record for alias-based lookup.
type row struct {
	cols   []string
	values []string
}

func newRow(header, record []string) row {
	return row{cols: header, values: record}
}

// get returns the first cell whose column matches any alias, in alias order.
func (r row) get(aliases []string) string {
	for _, alias := range aliases {
		for i, col := range r.cols {
			if i >= len(r.values) {
				break
			}
			if strings.EqualFold(strings.TrimSpace(col), alias) {
				return r.values[i]
			}
		}
	}
	return ""
}
