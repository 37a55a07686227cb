package catalog

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 10 * time.Second

// FetcherConfig controls the collectors behind CollyFetcher.
type FetcherConfig struct {
	// UserAgent is the fixed client label sent with every request.
	UserAgent string
	// Delay is an extra politeness delay applied between requests.
	Delay time.Duration
	// MaxParallel caps simultaneous requests per collector.
	MaxParallel int
}

// CollyFetcher implements Fetcher using Colly collectors. Cloned collectors
// share their HTTP backend, so the request timeout cannot be set per call;
// instead one collector is kept per distinct timeout, fully configured at
// creation and only cloned afterwards.
type CollyFetcher struct {
	cfg    FetcherConfig
	logger *zap.Logger

	mu        sync.Mutex
	byTimeout map[time.Duration]*colly.Collector
}

// NewCollyFetcher constructs a configured Colly-based Fetcher.
func NewCollyFetcher(cfg FetcherConfig, logger *zap.Logger) (*CollyFetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 1
	}

	f := &CollyFetcher{
		cfg:       cfg,
		logger:    logger,
		byTimeout: make(map[time.Duration]*colly.Collector),
	}
	// Surface a bad limit rule at construction rather than on the first
	// request.
	if _, err := f.collectorFor(defaultRequestTimeout); err != nil {
		return nil, err
	}
	return f, nil
}

// Get fetches a URL and returns the response body plus metadata.
func (f *CollyFetcher) Get(ctx context.Context, rawURL string, timeout time.Duration) (Response, error) {
	return f.do(ctx, rawURL, timeout, false)
}

// Head issues a metadata-only request; the returned Response carries headers
// and status but no body.
func (f *CollyFetcher) Head(ctx context.Context, rawURL string, timeout time.Duration) (Response, error) {
	return f.do(ctx, rawURL, timeout, true)
}

// collectorFor returns the collector owning the given timeout, building it
// on first use. SetRequestTimeout happens exactly once per collector here;
// requests clone the result and register callbacks on the clone only.
func (f *CollyFetcher) collectorFor(timeout time.Duration) (*colly.Collector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.byTimeout[timeout]; ok {
		return c, nil
	}

	c := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(f.cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.WithTransport(&http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 16,
		MaxConnsPerHost:     f.cfg.MaxParallel * 2,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	})
	c.SetRequestTimeout(timeout)

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: f.cfg.MaxParallel,
		Delay:       f.cfg.Delay,
	}); err != nil {
		return nil, err
	}

	f.byTimeout[timeout] = c
	return c, nil
}

func (f *CollyFetcher) do(ctx context.Context, rawURL string, timeout time.Duration, head bool) (Response, error) {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	base, err := f.collectorFor(timeout)
	if err != nil {
		return Response{}, err
	}
	collector := base.Clone()

	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{resp: toResponse(r)})
	})
	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		res := fetchResult{err: err}
		if r != nil {
			res.resp = toResponse(r)
		}
		send(res)
	})

	var visitErr error
	if head {
		visitErr = collector.Head(rawURL)
	} else {
		visitErr = collector.Visit(rawURL)
	}
	if visitErr != nil {
		return Response{}, visitErr
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}
		return res.resp, res.err
	default:
		return Response{}, errors.New("request produced no result")
	}
}

func toResponse(r *colly.Response) Response {
	headers := http.Header{}
	if r.Headers != nil {
		for k, v := range *r.Headers {
			cp := make([]string, len(v))
			copy(cp, v)
			headers[k] = cp
		}
	}
	return Response{
		StatusCode: r.StatusCode,
		Headers:    headers,
		Body:       append([]byte{}, r.Body...),
	}
}

type fetchResult struct {
	resp Response
	err  error
}
