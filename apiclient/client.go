package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// Client is a resilient HTTP client: every request gets a per-attempt
// timeout, exponential backoff with jitter between retries, error
// classification, and (for GET) response caching with a stale-serve fallback.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      *Cache

	// sleep is swapped out by tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// cachedResponse is what the engine stores in the cache: the raw body plus
// enough information to re-decode it on a later hit.
type cachedResponse struct {
	body        []byte
	contentType string
}

// New creates a Client, filling unset Config fields with package defaults.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retries == 0 {
		cfg.Retries = defaultRetries
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = defaultCacheTTL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// Per-attempt timeouts come from the request context, so the
		// transport itself has no overall deadline.
		httpClient = &http.Client{Timeout: 0}
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		cache:      NewCache(),
		sleep:      sleepCtx,
	}
}

// Cache exposes the client's response cache, mainly so callers can Clear it
// after a write they know invalidates cached reads.
func (c *Client) Cache() *Cache { return c.cache }

// Do performs one logical request and returns the decoded payload: a parsed
// value for JSON responses, the raw text otherwise. On exhaustion of the
// retry policy it returns an *APIError, except that GET requests with caching
// enabled fall back to any previously cached value rather than failing.
func (c *Client) Do(ctx context.Context, opts RequestOptions) (any, error) {
	resp, err := c.do(ctx, opts)
	if err != nil {
		return nil, err
	}
	return decodeBody(resp)
}

// DoJSON performs the request and unmarshals the JSON response into out.
func (c *Client) DoJSON(ctx context.Context, opts RequestOptions, out any) error {
	resp, err := c.do(ctx, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, opts RequestOptions) (cachedResponse, error) {
	desc, err := c.resolve(opts)
	if err != nil {
		return cachedResponse{}, err
	}

	// Offline short-circuit: a cached GET is served at any age, everything
	// else fails immediately without touching the network.
	if c.cfg.Offline != nil && c.cfg.Offline() {
		if desc.cacheable {
			if e, ok := c.cache.Get(desc.cacheKey); ok {
				c.logf("serving cached response while offline: %s %s", desc.method, desc.url)
				return e.Value.(cachedResponse), nil
			}
		}
		return cachedResponse{}, &APIError{Kind: KindNetwork, Message: "network unavailable"}
	}

	// Fresh cache hit returns without a network call. A stale hit is evicted
	// and the request proceeds as a miss, but the stale value is kept at hand
	// for the last-resort path below.
	var stale cachedResponse
	var haveStale bool
	if desc.cacheable {
		if e, ok := c.cache.Get(desc.cacheKey); ok {
			if c.cache.IsFresh(e, desc.cacheTTL) {
				return e.Value.(cachedResponse), nil
			}
			stale, haveStale = e.Value.(cachedResponse), true
			c.cache.evict(desc.cacheKey)
		}
	}

	var lastErr *APIError
	for attempt := 0; attempt <= desc.retries; attempt++ {
		if ctx.Err() != nil {
			return cachedResponse{}, ctx.Err()
		}

		resp, err := c.attempt(ctx, desc)
		if err == nil {
			if desc.cacheable {
				c.cache.Set(desc.cacheKey, resp)
			}
			return resp, nil
		}

		// Caller cancellation is not a request failure; stop immediately and
		// let the caller see the plain context error.
		if ctx.Err() != nil {
			return cachedResponse{}, ctx.Err()
		}

		lastErr = Normalize(err, c.cfg.Offline)
		c.logf("attempt %d/%d failed: %s %s: %v", attempt+1, desc.retries+1, desc.method, desc.url, lastErr)

		// Non-transient failures are not retried blindly; only network and
		// timeout errors earn another attempt.
		if !lastErr.Transient() {
			break
		}
		if attempt < desc.retries {
			if err := c.sleep(ctx, backoffDelay(desc.retryDelay, attempt)); err != nil {
				return cachedResponse{}, err
			}
		}
	}

	// Serve stale on total failure: a GET response already seen once is never
	// lost to a transient outage. This is a degraded success, not an error.
	if desc.cacheable && haveStale {
		c.logf("all attempts failed, serving stale cache: %s %s", desc.method, desc.url)
		return stale, nil
	}
	return cachedResponse{}, lastErr
}

// attempt performs one network attempt under its own timeout.
func (c *Client) attempt(ctx context.Context, desc descriptor) (cachedResponse, error) {
	if desc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, desc.timeout)
		defer cancel()
	}

	var body io.Reader
	if desc.body != nil {
		body = bytes.NewReader(desc.body)
	}
	req, err := http.NewRequestWithContext(ctx, desc.method, desc.url, body)
	if err != nil {
		return cachedResponse{}, err
	}
	for k, v := range desc.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return cachedResponse{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return cachedResponse{}, err
	}

	if resp.StatusCode >= 400 {
		return cachedResponse{}, FromStatus(resp.StatusCode, errorMessage(data))
	}

	return cachedResponse{body: data, contentType: resp.Header.Get("Content-Type")}, nil
}

// resolve merges client defaults with call-level overrides (call wins) into
// an immutable descriptor.
func (c *Client) resolve(opts RequestOptions) (descriptor, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	url := opts.Path
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + strings.TrimPrefix(url, "/")
	}

	// Fixed JSON headers, then client defaults, then call headers.
	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	for k, v := range c.cfg.Headers {
		headers[k] = v
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	var body []byte
	if opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return descriptor{}, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = data
	}

	desc := descriptor{
		method:     method,
		url:        url,
		headers:    headers,
		body:       body,
		timeout:    c.cfg.Timeout,
		retries:    c.cfg.Retries,
		retryDelay: c.cfg.RetryDelay,
		cacheTTL:   c.cfg.CacheTTL,
		cacheable:  opts.Cache && method == http.MethodGet,
	}
	if opts.Timeout != 0 {
		desc.timeout = opts.Timeout
	}
	if opts.Retries != nil {
		desc.retries = *opts.Retries
	}
	if opts.RetryDelay != 0 {
		desc.retryDelay = opts.RetryDelay
	}
	if opts.CacheTTL != 0 {
		desc.cacheTTL = opts.CacheTTL
	}
	if desc.cacheable {
		desc.cacheKey = CacheKey(method, url, string(body))
	}
	return desc, nil
}

// backoffDelay computes the wait before retry number attempt+1:
// base * 1.5^attempt plus up to a second of jitter, so simultaneous failures
// don't retry in lockstep.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := time.Duration(float64(base) * math.Pow(1.5, float64(attempt)))
	return d + time.Duration(rand.Int63n(int64(jitterMax)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// decodeBody decodes by declared content type: JSON is parsed, anything else
// comes back as raw text.
func decodeBody(resp cachedResponse) (any, error) {
	if strings.Contains(resp.contentType, "application/json") {
		var v any
		if err := json.Unmarshal(resp.body, &v); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return v, nil
	}
	return string(resp.body), nil
}

// errorMessage extracts a human-readable message from a JSON error body.
func errorMessage(data []byte) string {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error", "detail"} {
		if s, ok := body[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func (c *Client) logf(format string, args ...any) {
	// Telemetry must never abort the request flow; a nil logger is simply
	// skipped.
	if c.cfg.Logger != nil {
		c.cfg.Logger.Printf("[apiclient] "+format, args...)
	}
}
