package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/robertsoden/ontario-environmental-data/internal/observability"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
	defaultTimeout    = 30 * time.Second

	// defaultRetryAfter is used when a 429 arrives without a Retry-After header.
	defaultRetryAfter = 60 * time.Second

	// maxErrorBody bounds how much of a failed response is echoed into errors.
	maxErrorBody = 8 << 10
)

// attemptOutcome classifies a single request attempt. The retry loop is driven
// by this tag rather than by exceptions bubbling through it.
type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	outcomeRateLimited
	outcomeServerError
	outcomeNetworkError
	outcomeFatal
)

func (o attemptOutcome) String() string {
	switch o {
	case outcomeSuccess:
		return "success"
	case outcomeRateLimited:
		return "rate_limited"
	case outcomeServerError:
		return "server_error"
	case outcomeNetworkError:
		return "network_error"
	default:
		return "fatal"
	}
}

// RequesterOpts tunes retry behavior. Zero values take defaults.
type RequesterOpts struct {
	MaxRetries int
	BaseDelay  time.Duration
	HTTPClient *http.Client
	Clock      clockwork.Clock
}

// Requester performs one logical HTTP request with rate limiting, bounded
// retries, and exponential backoff. It is the single transport primitive all
// source clients build on.
type Requester struct {
	name       string
	limiter    *RateLimiter
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	maxRetries int
	baseDelay  time.Duration
}

// NewRequester creates a Requester for one data source. The name labels log
// lines and metrics.
func NewRequester(name string, limiter *RateLimiter, logger *slog.Logger, metrics *observability.Metrics, opts RequesterOpts) *Requester {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Requester{
		name:       name,
		limiter:    limiter,
		httpClient: opts.HTTPClient,
		clock:      opts.Clock,
		logger:     logger.With("source", name),
		metrics:    metrics,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
	}
}

// Get issues a rate-limited, retried GET request. See Do.
func (r *Requester) Get(ctx context.Context, url string) (*http.Response, error) {
	return r.Do(ctx, http.MethodGet, url, nil)
}

// GetJSON issues a GET request and decodes the response body into v.
func (r *Requester) GetJSON(ctx context.Context, url string, v any) error {
	resp, err := r.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &DataSourceError{Message: "decode response", Err: err}
	}
	return nil
}

// Do performs one logical request. 2xx responses return immediately; 5xx and
// network errors are retried with exponential backoff up to MaxRetries; 429
// responses honor Retry-After and do not consume a retry attempt (cooperative
// backpressure is not a failure, so 429 waits are bounded only by the
// context). Any other status fails immediately.
//
// Callers see exactly three shapes: a 2xx response (body open, caller closes),
// a *DataSourceError, or ctx.Err() when cancelled.
func (r *Requester) Do(ctx context.Context, method, url string, header http.Header) (*http.Response, error) {
	for attempt := 0; attempt < r.maxRetries; {
		if err := r.waitForSlot(ctx); err != nil {
			return nil, err
		}

		resp, reqErr := r.attempt(ctx, method, url, header)
		outcome := classify(resp, reqErr)
		r.countAttempt(outcome)

		switch outcome {
		case outcomeSuccess:
			return resp, nil

		case outcomeRateLimited:
			wait := retryAfter(resp)
			discard(resp)
			r.logger.Warn("rate limited by upstream", "url", url, "retry_after", wait)
			if !r.sleep(ctx, wait) {
				return nil, ctx.Err()
			}

		case outcomeServerError:
			delay := r.backoff(attempt)
			status := resp.StatusCode
			discard(resp)
			r.logger.Warn("server error, retrying", "url", url, "status", status,
				"attempt", attempt+1, "max_retries", r.maxRetries, "delay", delay)
			r.countRetry()
			if !r.sleep(ctx, delay) {
				return nil, ctx.Err()
			}
			attempt++

		case outcomeNetworkError:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt == r.maxRetries-1 {
				return nil, &DataSourceError{
					Message: fmt.Sprintf("request failed after %d attempts", r.maxRetries),
					Err:     reqErr,
				}
			}
			delay := r.backoff(attempt)
			r.logger.Warn("request failed, retrying", "url", url, "error", reqErr,
				"attempt", attempt+1, "max_retries", r.maxRetries, "delay", delay)
			r.countRetry()
			if !r.sleep(ctx, delay) {
				return nil, ctx.Err()
			}
			attempt++

		case outcomeFatal:
			body := readErrorBody(resp)
			discard(resp)
			return nil, &DataSourceError{
				Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body),
				Status:  resp.StatusCode,
			}
		}
	}

	return nil, &DataSourceError{
		Message: fmt.Sprintf("request failed after %d attempts", r.maxRetries),
	}
}

// attempt issues a single HTTP request.
func (r *Requester) attempt(ctx context.Context, method, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := r.clock.Now()
	resp, err := r.httpClient.Do(req)
	if r.metrics != nil {
		r.metrics.RequestDuration.WithLabelValues(r.name).Observe(r.clock.Since(start).Seconds())
	}
	return resp, err
}

// waitForSlot blocks on the rate limiter and records the wait duration.
func (r *Requester) waitForSlot(ctx context.Context) error {
	start := r.clock.Now()
	err := r.limiter.Wait(ctx)
	if r.metrics != nil {
		r.metrics.RateLimitWaitSeconds.WithLabelValues(r.name).Observe(r.clock.Since(start).Seconds())
	}
	return err
}

func (r *Requester) backoff(attempt int) time.Duration {
	return r.baseDelay * (1 << attempt)
}

// sleep waits for d, returning false if the context was cancelled first.
func (r *Requester) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := r.clock.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.Chan():
		return true
	}
}

func (r *Requester) countAttempt(o attemptOutcome) {
	if r.metrics != nil {
		r.metrics.RequestsTotal.WithLabelValues(r.name, o.String()).Inc()
	}
}

func (r *Requester) countRetry() {
	if r.metrics != nil {
		r.metrics.RetriesTotal.WithLabelValues(r.name).Inc()
	}
}

func classify(resp *http.Response, err error) attemptOutcome {
	switch {
	case err != nil:
		return outcomeNetworkError
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return outcomeSuccess
	case resp.StatusCode == http.StatusTooManyRequests:
		return outcomeRateLimited
	case resp.StatusCode >= 500:
		return outcomeServerError
	default:
		return outcomeFatal
	}
}

// retryAfter reads the Retry-After header as integer seconds, defaulting to
// 60s when absent or unparseable.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

func readErrorBody(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return string(body)
}

// discard drains and closes a response body so the connection can be reused.
func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain
	resp.Body.Close()
}
