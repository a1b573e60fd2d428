package apiclient

import (
	"log"
	"net/http"
	"time"
)

// Config holds client-level defaults. Zero values fall back to the package
// defaults below.
type Config struct {
	// BaseURL is prefixed to relative request paths.
	BaseURL string

	// Headers are sent with every request (call-level headers win on conflict).
	Headers map[string]string

	// Timeout bounds each individual attempt, not the whole retry loop.
	Timeout time.Duration

	// Retries is the default number of retries after the first attempt, so a
	// request makes at most Retries+1 network attempts. Zero selects the
	// package default (2); a no-retry policy is expressed per call through
	// RequestOptions.Retries, whose pointer distinguishes "unset" from "zero".
	Retries int

	// RetryDelay is the backoff base; attempt n waits RetryDelay * 1.5^n plus
	// up to a second of jitter.
	RetryDelay time.Duration

	// CacheTTL is the default freshness window for cached GET responses.
	CacheTTL time.Duration

	// HTTPClient overrides the transport used for requests.
	HTTPClient *http.Client

	// Offline reports whether the machine is believed to be disconnected.
	// When it returns true the engine short-circuits instead of attempting
	// the network. Nil means "assume online".
	Offline func() bool

	// Logger receives per-attempt telemetry. Nil disables it.
	Logger *log.Logger
}

const (
	defaultTimeout    = 30 * time.Second
	defaultRetries    = 2
	defaultRetryDelay = time.Second
	defaultCacheTTL   = 5 * time.Minute

	jitterMax = time.Second
)

// RequestOptions describes one logical request. Unset fields inherit the
// client-level defaults; set fields win.
type RequestOptions struct {
	Method  string // default GET
	Path    string // joined to BaseURL unless absolute
	Headers map[string]string
	Body    any // marshalled to JSON when non-nil

	Timeout    time.Duration
	Retries    *int // nil inherits the client default
	RetryDelay time.Duration

	// Cache enables response caching for this call. Only honored for GET.
	Cache    bool
	CacheTTL time.Duration
}

// descriptor is the fully merged request description: immutable once built.
type descriptor struct {
	method     string
	url        string
	headers    map[string]string
	body       []byte
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	cacheable  bool
	cacheTTL   time.Duration
	cacheKey   string
}
