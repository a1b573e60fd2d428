// Package assistant is the client for the practice backend's AI endpoints:
// document-grounded queries (single-shot and streamed) and named quick
// actions. Non-streaming calls go through the resilient apiclient engine and
// inherit its retry, timeout and classification behavior; streamed queries
// open their own connection because a stream is not restartable.
package assistant

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"lexio/apiclient"
	"lexio/model"
)

const (
	queryPath       = "/api/ai/query"
	streamQueryPath = "/api/ai/query/stream"
	actionPath      = "/api/ai/quick-action"
)

// Config holds the connection settings for the assistant backend.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.practice.example.com".
	BaseURL string

	// Token authenticates every request.
	Token string

	// Model is the default model sent with queries and actions.
	Model string

	// Timeout, Retries and CacheTTL tune the underlying request engine.
	Timeout  time.Duration
	Retries  int
	CacheTTL time.Duration

	// HTTPClient overrides the transport used for streaming connections.
	HTTPClient *http.Client

	// Engine overrides the request engine entirely (used by tests).
	Engine *apiclient.Client

	Logger *log.Logger
}

// Client talks to the assistant endpoints.
type Client struct {
	cfg        Config
	engine     *apiclient.Client
	httpClient *http.Client
}

// New creates an assistant client.
func New(cfg Config) *Client {
	engine := cfg.Engine
	if engine == nil {
		engine = apiclient.New(apiclient.Config{
			BaseURL:  cfg.BaseURL,
			Headers:  authHeaders(cfg.Token),
			Timeout:  cfg.Timeout,
			Retries:  cfg.Retries,
			CacheTTL: cfg.CacheTTL,
			Logger:   cfg.Logger,
		})
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// No overall timeout: a streamed reply stays open as long as the
		// backend keeps producing chunks. Cancellation comes from the
		// caller's context.
		httpClient = &http.Client{Timeout: 0}
	}

	return &Client{cfg: cfg, engine: engine, httpClient: httpClient}
}

func authHeaders(token string) map[string]string {
	if token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// Engine exposes the underlying request engine, mainly for cache control.
func (c *Client) Engine() *apiclient.Client { return c.engine }

// Query sends a single-shot (non-streamed) assistant query.
func (c *Client) Query(ctx context.Context, req model.QueryRequest) (*model.QueryResult, error) {
	if req.Model == "" {
		req.Model = c.cfg.Model
	}

	var result model.QueryResult
	err := c.engine.DoJSON(ctx, apiclient.RequestOptions{
		Method: http.MethodPost,
		Path:   queryPath,
		Body:   req,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("assistant query failed: %w", err)
	}
	return &result, nil
}

// actionRequest is the wire payload for a named quick action.
type actionRequest struct {
	Action      string   `json:"action"`
	DocumentIDs []string `json:"document_ids"`
	Model       string   `json:"model,omitempty"`
}

// RunAction invokes a named quick action over the selected documents. The
// result payload is action-specific and opaque here beyond success/error.
func (c *Client) RunAction(ctx context.Context, action string, documentIDs []string, modelName string) (map[string]any, error) {
	if modelName == "" {
		modelName = c.cfg.Model
	}

	var result map[string]any
	err := c.engine.DoJSON(ctx, apiclient.RequestOptions{
		Method: http.MethodPost,
		Path:   actionPath,
		Body:   actionRequest{Action: action, DocumentIDs: documentIDs, Model: modelName},
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("quick action %q failed: %w", action, err)
	}
	return result, nil
}

func (c *Client) logf(format string, args ...any) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Printf("[assistant] "+format, args...)
	}
}
