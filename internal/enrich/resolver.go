// Package enrich runs the cover-resolution pipeline over a batch of reading
// records using a fixed pool of workers.
package enrich

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/internal/books"
)

// Catalog is the slice of the catalog client the resolver needs.
type Catalog interface {
	VerifyCoverByCode(ctx context.Context, code string) (string, bool)
	SearchCover(ctx context.Context, title, authors string) (string, bool)
}

// Resolver decides the cover outcome for a single record: an existence check
// on the record's code when one is present, then a title/author search. Every
// record gets exactly one outcome; absence is a normal result, not an error.
type Resolver struct {
	catalog Catalog
	logger  *zap.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(catalog Catalog, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{catalog: catalog, logger: logger}
}

// Resolve returns the cover outcome for the given record. The by-code check
// runs first and short-circuits the search on success; a record without a
// code goes straight to search.
func (r *Resolver) Resolve(ctx context.Context, book *books.Book) books.Outcome {
	outcome := books.Outcome{BookID: book.ID, Source: books.SourceNone}

	if code := strings.TrimSpace(book.ISBN); code != "" {
		if coverURL, ok := r.catalog.VerifyCoverByCode(ctx, code); ok {
			outcome.CoverURL = coverURL
			outcome.Source = books.SourceCode
			return outcome
		}
	}

	start := time.Now()
	if coverURL, ok := r.catalog.SearchCover(ctx, book.Title, book.Authors); ok {
		outcome.CoverURL = coverURL
		outcome.Source = books.SourceSearch
		return outcome
	}
	r.logger.Debug("no cover found",
		zap.String("book_id", book.ID),
		zap.String("title", book.Title),
		zap.Duration("search_dur", time.Since(start)),
	)
	return outcome
}
