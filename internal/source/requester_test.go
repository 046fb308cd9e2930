package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertsoden/ontario-environmental-data/internal/observability"
)

func testRequester(opts RequesterOpts) *Requester {
	if opts.BaseDelay == 0 {
		opts.BaseDelay = time.Millisecond
	}
	return NewRequester("test",
		NewRateLimiter(0), // tests drive their own pacing
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting(),
		opts)
}

func TestRequester_SuccessFirstAttempt(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.Write([]byte(`{"ok":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	r := testRequester(RequesterOpts{})
	resp, err := r.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestRequester_ServerErrorExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := testRequester(RequesterOpts{MaxRetries: 3})
	_, err := r.Get(context.Background(), srv.URL)

	var dsErr *DataSourceError
	require.ErrorAs(t, err, &dsErr)
	assert.Contains(t, dsErr.Message, "after 3 attempts")
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRequester_ServerErrorRecovers(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	defer srv.Close()

	r := testRequester(RequesterOpts{MaxRetries: 3})
	resp, err := r.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(3), attempts.Load())
}

func TestRequester_RateLimitedDoesNotConsumeAttempts(t *testing.T) {
	// More 429s than MaxRetries: the request still succeeds because
	// cooperative backpressure never counts against the retry budget.
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) <= 5 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	defer srv.Close()

	r := testRequester(RequesterOpts{MaxRetries: 3})
	resp, err := r.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(6), attempts.Load())
}

func TestRequester_RateLimitWaitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	r := testRequester(RequesterOpts{})
	_, err := r.Get(ctx, srv.URL)

	// Cancellation propagates as ctx.Err(), not as a source failure.
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var dsErr *DataSourceError
	assert.False(t, errors.As(err, &dsErr))
}

func TestRequester_RateLimitedWaitsFullRetryAfter(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	r := testRequester(RequesterOpts{Clock: clock})

	done := make(chan error, 1)
	go func() {
		resp, err := r.Get(context.Background(), srv.URL)
		if err == nil {
			resp.Body.Close()
		}
		done <- err
	}()

	// The requester must be parked on the Retry-After timer, and one of the
	// two seconds is not enough to release it.
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	select {
	case err := <-done:
		t.Fatalf("returned before Retry-After elapsed: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(time.Second)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("did not resume after Retry-After elapsed")
	}
	assert.Equal(t, int32(2), attempts.Load())
}

func TestRequester_BackoffGrowsBetweenRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	r := testRequester(RequesterOpts{MaxRetries: 3, BaseDelay: time.Second, Clock: clock})

	done := make(chan error, 1)
	go func() {
		resp, err := r.Get(context.Background(), srv.URL)
		if err == nil {
			resp.Body.Close()
		}
		done <- err
	}()

	// First retry waits baseDelay.
	clock.BlockUntil(1)
	clock.Advance(time.Second)

	// Second retry waits 2*baseDelay, so advancing one second must leave the
	// requester parked.
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	select {
	case err := <-done:
		t.Fatalf("returned before the doubled backoff elapsed: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(time.Second)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("did not resume after the backoff elapsed")
	}
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRequester_ClientErrorFailsImmediately(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no such layer")) //nolint:errcheck
	}))
	defer srv.Close()

	r := testRequester(RequesterOpts{MaxRetries: 3})
	_, err := r.Get(context.Background(), srv.URL)

	var dsErr *DataSourceError
	require.ErrorAs(t, err, &dsErr)
	assert.Equal(t, http.StatusNotFound, dsErr.Status)
	assert.Contains(t, dsErr.Message, "HTTP 404")
	assert.Contains(t, dsErr.Message, "no such layer")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestRequester_NetworkErrorRetainsCause(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // refuse all connections

	r := testRequester(RequesterOpts{MaxRetries: 2})
	_, err := r.Get(context.Background(), srv.URL)

	var dsErr *DataSourceError
	require.ErrorAs(t, err, &dsErr)
	assert.Contains(t, dsErr.Message, "after 2 attempts")
	assert.Error(t, dsErr.Unwrap())
}

func TestRequester_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total_results": 42}`)) //nolint:errcheck
	}))
	defer srv.Close()

	r := testRequester(RequesterOpts{})
	var out struct {
		TotalResults int `json:"total_results"`
	}
	require.NoError(t, r.GetJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, 42, out.TotalResults)
}

func TestRequester_GetJSON_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json")) //nolint:errcheck
	}))
	defer srv.Close()

	r := testRequester(RequesterOpts{})
	var out map[string]any
	err := r.GetJSON(context.Background(), srv.URL, &out)

	var dsErr *DataSourceError
	require.ErrorAs(t, err, &dsErr)
	assert.Contains(t, dsErr.Message, "decode response")
}

func TestRetryAfter(t *testing.T) {
	mk := func(v string) *http.Response {
		h := http.Header{}
		if v != "" {
			h.Set("Retry-After", v)
		}
		return &http.Response{Header: h}
	}

	assert.Equal(t, 60*time.Second, retryAfter(mk("")))
	assert.Equal(t, 5*time.Second, retryAfter(mk("5")))
	assert.Equal(t, 60*time.Second, retryAfter(mk("soon")))
	assert.Equal(t, 60*time.Second, retryAfter(mk("-1")))
}
