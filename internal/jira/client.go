package jira

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestRate is the proactive throttle rate in requests per
	// second.
	DefaultRequestRate = 2.0
)

// BasicAuth carries optional credentials for the Jira API. A zero value
// means anonymous access.
type BasicAuth struct {
	Username string
	Token    string
}

// Client performs single HTTP GETs against the Jira REST API and
// classifies the outcome. It carries no retry policy of its own; that is
// the Fetcher's responsibility.
type Client struct {
	httpClient *http.Client
	baseURL    string
	auth       BasicAuth
	limiter    *rate.Limiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithAuth sets basic auth credentials.
func WithAuth(auth BasicAuth) ClientOption {
	return func(c *Client) {
		c.auth = auth
	}
}

// WithRequestRate sets the proactive throttle rate in requests per second.
func WithRequestRate(rps float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithHTTPClient replaces the underlying http.Client. Useful for testing.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Jira API client for the given base URL
// (e.g. "https://issues.apache.org/jira/rest/api/2").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRequestRate), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetJSON performs one GET against url and decodes the body into v.
// The outcome is classified into the package's error taxonomy:
//
//   - nil: 200 with a decodable body
//   - ErrRateLimited: 429
//   - *StatusError: 404 (not-found, skip) or 5xx (retryable)
//   - *TransportError: network failure, timeout, undecodable body, or any
//     unrecognised status
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Op: "throttle wait", URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &TransportError{Op: "build request", URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.auth.Username != "" || c.auth.Token != "" {
		req.SetBasicAuth(c.auth.Username, c.auth.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "request", URL: url, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Handled below.
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode, URL: url}
	case resp.StatusCode >= 500 && resp.StatusCode <= 599:
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode, URL: url}
	default:
		// Anything outside the recognised classes folds into a
		// transport failure.
		io.Copy(io.Discard, resp.Body)
		return &TransportError{
			Op:  "request",
			URL: url,
			Err: &StatusError{Code: resp.StatusCode, URL: url},
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read body", URL: url, Err: err}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &TransportError{Op: "decode body", URL: url, Err: err}
	}
	return nil
}
