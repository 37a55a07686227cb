// Package books defines the core record types shared across subsystems.
package books

// Book is one normalized reading-history entry. The ID is assigned once at
// ingestion and never reused within a run.
type Book struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Authors  string `json:"authors"`
	YearRead int    `json:"year_read"`
	DateRead string `json:"date_read,omitempty"`
	ISBN     string `json:"isbn,omitempty"`
	CoverURL string `json:"cover_url,omitempty"`
	Format   string `json:"format,omitempty"`
}

// Source identifies which resolution stage produced a cover URL.
type Source string

// Resolution sources reported per book.
const (
	SourceCode   Source = "code"
	SourceSearch Source = "search"
	SourceNone   Source = "none"
)

// Outcome is the result of resolving one book's cover. Exactly one Outcome
// is produced per submitted book per run.
type Outcome struct {
	BookID   string
	CoverURL string
	Source   Source
}

// Resolved reports whether the outcome carries a cover URL.
func (o Outcome) Resolved() bool {
	return o.CoverURL != ""
}

// RunCounters tracks per-run enrichment stats.
type RunCounters struct {
	Resolved int `json:"resolved"`
	Absent   int `json:"absent"`
}

// Total returns the number of books that produced an outcome.
func (c RunCounters) Total() int {
	return c.Resolved + c.Absent
}
