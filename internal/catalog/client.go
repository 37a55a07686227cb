package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config captures the catalog endpoints and retry budgets.
type Config struct {
	// APIBase is the search API root, e.g. https://openlibrary.org.
	APIBase string
	// CoversBase is the cover image root, e.g. https://covers.openlibrary.org.
	CoversBase string
	// VerifyTimeout bounds each existence-check request.
	VerifyTimeout time.Duration
	// SearchTimeout bounds each search request.
	SearchTimeout time.Duration
	// VerifyAttempts is the total attempt budget for the existence check.
	VerifyAttempts int
	// SearchAttempts is the total attempt budget for the search query.
	SearchAttempts int
	// MinCoverBytes is the payload size above which a cover is considered
	// real. The catalog serves a tiny placeholder image for missing covers,
	// and the size threshold is the only reliable discriminator.
	MinCoverBytes int64
}

func (c Config) withDefaults() Config {
	if c.VerifyTimeout <= 0 {
		c.VerifyTimeout = 5 * time.Second
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = 10 * time.Second
	}
	if c.VerifyAttempts <= 0 {
		c.VerifyAttempts = 2
	}
	if c.SearchAttempts <= 0 {
		c.SearchAttempts = 3
	}
	if c.MinCoverBytes <= 0 {
		c.MinCoverBytes = 1000
	}
	return c
}

// Client performs cover lookups against the remote catalog. All failure is
// folded into a "not found" result; transient errors are retried with
// backoff inside the attempt budgets.
type Client struct {
	fetch   Fetcher
	backoff *BackoffPolicy
	cfg     Config
	logger  *zap.Logger
}

// NewClient constructs a Client.
func NewClient(fetch Fetcher, backoff *BackoffPolicy, cfg Config, logger *zap.Logger) *Client {
	if backoff == nil {
		backoff = NewBackoffPolicy(time.Second)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		fetch:   fetch,
		backoff: backoff,
		cfg:     cfg.withDefaults(),
		logger:  logger,
	}
}

// CoverByCodeURL returns the canonical cover URL for a normalized catalog code.
func (c *Client) CoverByCodeURL(code string) string {
	return fmt.Sprintf("%s/b/isbn/%s-M.jpg", strings.TrimRight(c.cfg.CoversBase, "/"), code)
}

// CoverByIDURL returns the canonical cover URL for a numeric cover reference.
func (c *Client) CoverByIDURL(id int64) string {
	return fmt.Sprintf("%s/b/id/%d-M.jpg", strings.TrimRight(c.cfg.CoversBase, "/"), id)
}

// VerifyCoverByCode checks whether the catalog serves a real cover for the
// code via a metadata-only request. It returns the by-code URL when the
// reported payload exceeds the size threshold. A placeholder-sized payload is
// a terminal miss for this stage; transient failures are retried, and an
// exhausted budget also reports a miss so the caller can fall back to search.
func (c *Client) VerifyCoverByCode(ctx context.Context, code string) (string, bool) {
	coverURL := c.CoverByCodeURL(code)

	for attempt := 0; attempt < c.cfg.VerifyAttempts; attempt++ {
		if attempt > 0 && !c.pause(ctx, c.backoff.Delay(attempt-1)) {
			return "", false
		}
		resp, err := c.fetch.Head(ctx, coverURL, c.cfg.VerifyTimeout)
		if err != nil || !resp.Success() {
			c.logger.Debug("cover existence check failed",
				zap.String("code", code),
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode),
				zap.Error(err),
			)
			continue
		}
		if resp.ContentLength() > c.cfg.MinCoverBytes {
			return coverURL, true
		}
		// Placeholder image: the code has no real cover.
		return "", false
	}
	return "", false
}

// SearchCover queries the catalog for the combined title and author text and
// inspects the first result: a direct numeric cover reference wins, else the
// first listed code. Absence of a match is a normal outcome.
func (c *Client) SearchCover(ctx context.Context, title, authors string) (string, bool) {
	query := url.QueryEscape(strings.TrimSpace(title + " " + authors))
	searchURL := fmt.Sprintf("%s/search.json?q=%s&limit=1", strings.TrimRight(c.cfg.APIBase, "/"), query)

	for attempt := 0; attempt < c.cfg.SearchAttempts; attempt++ {
		if attempt > 0 && !c.pause(ctx, c.backoff.Delay(attempt-1)) {
			return "", false
		}
		resp, err := c.fetch.Get(ctx, searchURL, c.cfg.SearchTimeout)
		if err != nil || !resp.Success() {
			c.logger.Debug("cover search failed",
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode),
				zap.Error(err),
			)
			continue
		}

		var payload searchResponse
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			// Retrying will not change a parse error.
			c.logger.Debug("cover search returned malformed payload", zap.Error(err))
			return "", false
		}
		if len(payload.Docs) == 0 {
			return "", false
		}
		doc := payload.Docs[0]
		if doc.CoverID > 0 {
			return c.CoverByIDURL(doc.CoverID), true
		}
		if len(doc.ISBNs) > 0 && doc.ISBNs[0] != "" {
			return c.CoverByCodeURL(doc.ISBNs[0]), true
		}
		return "", false
	}
	return "", false
}

// pause sleeps for the given delay, returning false if the context finishes
// first.
func (c *Client) pause(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// searchResponse is the minimal slice of the catalog search payload we read.
type searchResponse struct {
	NumFound int         `json:"numFound"`
	Docs     []searchDoc `json:"docs"`
}

type searchDoc struct {
	Title      string   `json:"title,omitempty"`
	AuthorName []string `json:"author_name,omitempty"`
	CoverID    int64    `json:"cover_i,omitempty"`
	ISBNs      []string `json:"isbn,omitempty"`
}
