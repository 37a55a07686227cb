// Package catalog talks to the remote book catalog: cover existence checks,
// title/author search, and the retry/backoff machinery around both.
package catalog

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// Response is the transport-level result of a catalog request.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Success reports whether the response carries a 2xx status.
func (r Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ContentLength parses the Content-Length header, returning 0 when the
// header is missing or malformed.
func (r Response) ContentLength() int64 {
	v := r.Headers.Get("Content-Length")
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Fetcher issues catalog requests. Head is used for metadata-only existence
// checks, Get for search queries. Implementations must honor the per-request
// timeout so a hung request cannot stall a worker indefinitely.
type Fetcher interface {
	Get(ctx context.Context, url string, timeout time.Duration) (Response, error)
	Head(ctx context.Context, url string, timeout time.Duration) (Response, error)
}
