package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCollyFetcherGet(t *testing.T) {
	t.Parallel()

	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.UserAgent()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"docs":[]}`))
	}))
	defer srv.Close()

	fetch, err := NewCollyFetcher(FetcherConfig{UserAgent: "shelfmark-test/1.0", MaxParallel: 2}, zap.NewNop())
	require.NoError(t, err)

	resp, err := fetch.Get(context.Background(), srv.URL, 5*time.Second)
	require.NoError(t, err)
	require.True(t, resp.Success())
	require.Equal(t, `{"docs":[]}`, string(resp.Body))
	require.Equal(t, "shelfmark-test/1.0", gotAgent)
}

func TestCollyFetcherHeadCarriesContentLength(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Length", "4321")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fetch, err := NewCollyFetcher(FetcherConfig{UserAgent: "shelfmark-test/1.0"}, zap.NewNop())
	require.NoError(t, err)

	resp, err := fetch.Head(context.Background(), srv.URL, 5*time.Second)
	require.NoError(t, err)
	require.True(t, resp.Success())
	require.EqualValues(t, 4321, resp.ContentLength())
	require.Empty(t, resp.Body)
}

func TestCollyFetcherConcurrentMixedTimeouts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "7")
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_, _ = w.Write([]byte("payload"))
		}
	}))
	defer srv.Close()

	fetch, err := NewCollyFetcher(FetcherConfig{UserAgent: "shelfmark-test/1.0", MaxParallel: 4}, zap.NewNop())
	require.NoError(t, err)

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var resp Response
			var err error
			if i%2 == 0 {
				resp, err = fetch.Head(context.Background(), srv.URL, 5*time.Second)
			} else {
				resp, err = fetch.Get(context.Background(), srv.URL, 10*time.Second)
				if err == nil && string(resp.Body) != "payload" {
					errs <- fmt.Errorf("unexpected body %q", resp.Body)
					return
				}
			}
			if err != nil {
				errs <- err
				return
			}
			if !resp.Success() {
				errs <- fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestCollyFetcherReusesCollectorPerTimeout(t *testing.T) {
	t.Parallel()

	fetch, err := NewCollyFetcher(FetcherConfig{UserAgent: "shelfmark-test/1.0"}, zap.NewNop())
	require.NoError(t, err)

	short, err := fetch.collectorFor(5 * time.Second)
	require.NoError(t, err)
	again, err := fetch.collectorFor(5 * time.Second)
	require.NoError(t, err)
	require.Same(t, short, again)

	long, err := fetch.collectorFor(10 * time.Second)
	require.NoError(t, err)
	require.NotSame(t, short, long)
}

func TestCollyFetcherReportsStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	fetch, err := NewCollyFetcher(FetcherConfig{UserAgent: "shelfmark-test/1.0"}, zap.NewNop())
	require.NoError(t, err)

	resp, err := fetch.Get(context.Background(), srv.URL, 5*time.Second)
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.False(t, resp.Success())
}
