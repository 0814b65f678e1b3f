package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/rflorenc/catalog-migrator/internal/metrics"
)

// Request is a single non-paged Graph call.
type Request struct {
	Method string
	Path   string // relative to the base URL, or an absolute nextLink
	Query  url.Values
	Header http.Header
	Body   interface{}
}

// Requester issues a Request and returns the response body. Implementations
// return *RemoteError for anything other than a 2xx response.
type Requester interface {
	Do(ctx context.Context, req *Request) ([]byte, error)
}

// HTTPRequester is the bottom of the requester chain: it authenticates with
// a bearer token and talks HTTP.
type HTTPRequester struct {
	baseURL    string
	tokens     oauth2.TokenSource
	httpClient *http.Client
}

// NewHTTPRequester creates a requester for baseURL (e.g.
// https://graph.microsoft.com/beta) using tokens for authentication.
func NewHTTPRequester(baseURL string, tokens oauth2.TokenSource, httpClient *http.Client) *HTTPRequester {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPRequester{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
	}
}

func (h *HTTPRequester) Do(ctx context.Context, r *Request) ([]byte, error) {
	u := r.Path
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = h.baseURL + r.Path
	}
	if len(r.Query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + encodeQuery(r.Query)
	}

	var bodyReader io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	tok, err := h.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("acquiring token: %w", err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := h.httpClient.Do(req)
	metrics.RemoteCallLatency.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	if err != nil {
		re := newTransportError(r.Method, r.Path, err)
		metrics.RemoteCallsTotal.WithLabelValues(r.Method, string(re.Kind)).Inc()
		return nil, re
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		re := newTransportError(r.Method, r.Path, fmt.Errorf("reading response: %w", err))
		metrics.RemoteCallsTotal.WithLabelValues(r.Method, string(re.Kind)).Inc()
		return nil, re
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		re := newStatusError(r.Method, r.Path, resp.StatusCode, body)
		metrics.RemoteCallsTotal.WithLabelValues(r.Method, string(re.Kind)).Inc()
		return nil, re
	}
	metrics.RemoteCallsTotal.WithLabelValues(r.Method, "ok").Inc()
	return body, nil
}

// encodeQuery encodes OData system query options. url.Values.Encode escapes
// '$' in keys, which Graph tolerates, but spaces must be %20 rather than '+'.
func encodeQuery(q url.Values) string {
	return strings.ReplaceAll(q.Encode(), "+", "%20")
}

// RetryConfig parametrises RetryRequester.
type RetryConfig struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Clock     clock.Clock
}

// RetryRequester retries transient failures of the wrapped requester with
// doubling backoff. Non-transient errors are returned immediately.
type RetryRequester struct {
	next Requester
	cfg  RetryConfig
	log  *slog.Logger
}

// WithRetry wraps next in a RetryRequester.
func WithRetry(next Requester, cfg RetryConfig, log *slog.Logger) *RetryRequester {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 5
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if log == nil {
		log = slog.Default()
	}
	return &RetryRequester{next: next, cfg: cfg, log: log}
}

func (r *RetryRequester) Do(ctx context.Context, req *Request) ([]byte, error) {
	var body []byte
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			var err error
			body, err = r.next.Do(ctx, req)
			return err
		},
		IsFatalError: func(err error) bool {
			return !IsTransient(err)
		},
		NotifyFunc: func(err error, attempt int) {
			metrics.RemoteRetriesTotal.WithLabelValues(req.Method).Inc()
			r.log.Debug("retrying graph call", "method", req.Method, "path", req.Path, "attempt", attempt, "error", err)
		},
		Attempts:    r.cfg.Attempts,
		Delay:       r.cfg.BaseDelay,
		MaxDelay:    r.cfg.MaxDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       r.cfg.Clock,
		Stop:        ctx.Done(),
	})
	switch {
	case err == nil:
		return body, nil
	case retry.IsAttemptsExceeded(err):
		last := retry.LastError(err)
		r.log.Warn("graph call failed after retries", "method", req.Method, "path", req.Path, "attempts", r.cfg.Attempts, "error", last)
		return nil, fmt.Errorf("giving up after %d attempts: %w", r.cfg.Attempts, last)
	case retry.IsRetryStopped(err):
		return nil, ctx.Err()
	}
	return nil, err
}

// RateLimitedRequester holds each call until the token bucket allows it.
type RateLimitedRequester struct {
	next    Requester
	limiter *rate.Limiter
}

// WithRateLimit wraps next so that at most rps calls per second are issued,
// with the given burst.
func WithRateLimit(next Requester, rps float64, burst int) *RateLimitedRequester {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedRequester{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (l *RateLimitedRequester) Do(ctx context.Context, req *Request) ([]byte, error) {
	res := l.limiter.Reserve()
	if !res.OK() {
		return nil, fmt.Errorf("rate: cannot reserve token")
	}
	if delay := res.Delay(); delay > 0 {
		metrics.RateLimitWaits.Inc()
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			res.Cancel()
			return nil, ctx.Err()
		}
	}
	return l.next.Do(ctx, req)
}
