// Package ratings stores per-book satisfaction verdicts.
package ratings

import (
	"context"
	"fmt"
)

// Rating is a reader's verdict on one book.
type Rating string

// Accepted verdicts.
const (
	RatingYes  Rating = "yes"
	RatingNo   Rating = "no"
	RatingSkip Rating = "skip"
)

// Validate rejects anything outside the accepted verdict set.
func (r Rating) Validate() error {
	switch r {
	case RatingYes, RatingNo, RatingSkip:
		return nil
	default:
		return fmt.Errorf("rating must be %q, %q, or %q", RatingYes, RatingNo, RatingSkip)
	}
}

// Store persists verdicts keyed by book ID. A repeat rating for the same
// book replaces the previous one.
type Store interface {
	// Set records the verdict and returns the total number of rated books.
	Set(ctx context.Context, bookID string, rating Rating) (int, error)
	// All returns every stored verdict.
	All(ctx context.Context) (map[string]Rating, error)
	// Close releases underlying resources.
	Close() error
}
