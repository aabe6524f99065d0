// Package apiclient is the JSON-over-HTTP plumbing shared by the service
// clients: request building, throttling, bounded retries and decoding.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"tvrecs/internal/retry"
)

const userAgent = "tvrecs/1"

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client issues JSON requests against one base URL.
type Client struct {
	name    string
	baseURL string
	http    HTTPDoer
	retry   retry.Policy
	limiter *rate.Limiter
	headers http.Header
	query   url.Values
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithRetry sets the retry policy. The default performs a single attempt.
func WithRetry(policy retry.Policy) Option {
	return func(c *Client) { c.retry = policy }
}

// WithRateLimit throttles requests to rps per second. Zero disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if strings.TrimSpace(value) != "" {
			c.headers.Set(key, value)
		}
	}
}

// WithQuery adds a query parameter to every request, for API keys passed in the URL.
func WithQuery(key, value string) Option {
	return func(c *Client) {
		if strings.TrimSpace(value) != "" {
			c.query.Set(key, value)
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if hc, ok := c.http.(*http.Client); ok && timeout > 0 {
			hc.Timeout = timeout
		}
	}
}

// New builds a Client. name prefixes error messages.
func New(name, baseURL string, opts ...Option) *Client {
	c := &Client{
		name:    name,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   retry.None(),
		headers: http.Header{},
		query:   url.Values{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Get decodes the JSON response of GET path into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.Do(ctx, http.MethodGet, path, query, nil, out)
	return err
}

// Post sends body as JSON and decodes the response into out (which may be nil).
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	_, err := c.Do(ctx, http.MethodPost, path, nil, body, out)
	return err
}

// Put sends body as JSON and decodes the response into out (which may be nil).
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	_, err := c.Do(ctx, http.MethodPut, path, nil, body, out)
	return err
}

// Do performs one logical request with retries and returns the final
// response headers. Non-2xx responses surface as *retry.StatusError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) (http.Header, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request body: %w", c.name, err)
		}
		payload = data
	}
	target, err := c.url(path, query)
	if err != nil {
		return nil, err
	}
	op := fmt.Sprintf("%s %s %s", c.name, method, path)

	var headers http.Header
	err = c.retry.Do(ctx, op, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return fmt.Errorf("%s: build request: %w", c.name, err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for key, values := range c.headers {
			for _, v := range values {
				req.Header.Set(key, v)
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%s: request failed: %w", c.name, err)
		}
		defer resp.Body.Close()
		if err := retry.CheckResponse(op, resp); err != nil {
			return err
		}
		headers = resp.Header
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", c.name, err)
		}
		return nil
	})
	return headers, err
}

func (c *Client) url(path string, query url.Values) (string, error) {
	endpoint, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("%s: parse url: %w", c.name, err)
	}
	params := endpoint.Query()
	for key, values := range c.query {
		for _, v := range values {
			params.Set(key, v)
		}
	}
	for key, values := range query {
		for _, v := range values {
			params.Add(key, v)
		}
	}
	endpoint.RawQuery = params.Encode()
	return endpoint.String(), nil
}
