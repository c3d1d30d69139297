package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scenario-advisor/internal/logger"
)

// maxErrorBody bounds how much of an error response ends up in StatusError messages.
const maxErrorBody = 512

// Headers carrying credentials; their values never reach the logs.
var secretHeaders = map[string]bool{
	"authorization": true,
	"appkey":        true,
	"appsecret":     true,
	"x-api-key":     true,
	"hashkey":       true,
}

// Client is a small JSON-over-HTTP client shared by the news and brokerage adapters.
type Client struct {
	hc      *http.Client
	baseURL string
	headers map[string]string
	logging bool
}

// StatusError is returned for responses with status >= 400.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the upstream failed on its side (5xx or 429).
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

type ClientOption func(*Client)

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.hc.Timeout = timeout
		}
	}
}

// WithBaseURL prefixes every request path.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHeader sets a default header; per-request headers override it.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

func WithLogging(enabled bool) ClientOption {
	return func(c *Client) {
		c.logging = enabled
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.hc = hc
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		hc:      &http.Client{Timeout: 10 * time.Second},
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response is a fully read response body with its status.
type Response struct {
	StatusCode int
	Body       []byte
}

// ParseJSON decodes the body into v.
func (r *Response) ParseJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

func (c *Client) GET(ctx context.Context, path string, headers ...map[string]string) (*Response, error) {
	return c.send(ctx, http.MethodGet, path, nil, merge(headers))
}

// POST sends body as JSON.
func (c *Client) POST(ctx context.Context, path string, body any, headers ...map[string]string) (*Response, error) {
	return c.send(ctx, http.MethodPost, path, body, merge(headers))
}

func merge(hs []map[string]string) map[string]string {
	if len(hs) == 0 {
		return nil
	}
	out := make(map[string]string)
	for _, h := range hs {
		for k, v := range h {
			out[k] = v
		}
	}
	return out
}

func (c *Client) send(ctx context.Context, method, path string, body any, headers map[string]string) (*Response, error) {
	url := c.baseURL + path

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	if c.logging {
		logger.Debug(ctx, "HTTP request", "method", method, "url", url, "headers", redacted(req.Header))
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if c.logging {
			logger.Warn(ctx, "HTTP request failed", "method", method, "url", url, "error", err)
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if c.logging {
		logger.Debug(ctx, "HTTP response", "method", method, "url", url,
			"status", resp.StatusCode, "duration", time.Since(start), "bytes", len(respBody))
	}

	if resp.StatusCode >= 400 {
		text := strings.TrimSpace(string(respBody))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody] + "..."
		}
		if c.logging {
			logger.Warn(ctx, "HTTP error response", "method", method, "url", url, "status", resp.StatusCode)
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: text}
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// redacted copies h for logging with credential values masked.
func redacted(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		if secretHeaders[strings.ToLower(k)] {
			out[k] = "***"
			continue
		}
		out[k] = h.Get(k)
	}
	return out
}
