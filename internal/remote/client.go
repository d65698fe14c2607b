// Package remote is the client for the portfolio collaborator API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/mtlprog/folio/internal/session"
)

const (
	// DefaultTimeout bounds a single HTTP exchange.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of retries after an HTTP 429.
	DefaultMaxRetries = 3

	// DefaultBaseDelay is the first backoff delay; it doubles on every retry.
	DefaultBaseDelay = 500 * time.Millisecond

	// RequestIDHeader carries a per-request uuid for server-side correlation.
	RequestIDHeader = "X-Request-ID"
)

// Client talks to the collaborator API with bearer auth and retry on 429.
type Client struct {
	baseURL    string
	identity   session.Identity
	timeout    time.Duration
	base       http.RoundTripper
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	limiter    *rate.Limiter
}

// Option configures the Client.
type Option func(*Client)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithTransport sets the round tripper that sits under the bearer-token transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.base = rt
	}
}

// WithRetry sets how many times a 429 response is retried and the first backoff delay.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the limiter.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = nil
			return
		}
		burst := max(int(requestsPerSecond), 1)
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// NewClient creates a client for the API at baseURL acting as identity.
func NewClient(baseURL string, identity session.Identity, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		identity:   identity,
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}

	transport := c.base
	if ts := identity.TokenSource(); ts != nil {
		transport = &oauth2.Transport{Source: ts, Base: c.base}
	}
	c.httpClient = &http.Client{Timeout: c.timeout, Transport: transport}
	return c
}

// request is one API call; the payload is kept as bytes so retries can resend it.
type request struct {
	method      string
	path        string
	body        []byte
	contentType string
}

func jsonRequest(method, path string, payload any) (request, error) {
	r := request{method: method, path: path}
	if payload == nil {
		return r, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return r, fmt.Errorf("encoding %s %s body: %w", method, path, err)
	}
	r.body = body
	r.contentType = "application/json"
	return r, nil
}

// do executes the request, retrying on 429 with exponential backoff, and
// returns the body of a successful response.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	url := c.baseURL + r.path
	requestID := uuid.New().String()

	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("waiting for rate limiter: %w", err)
			}
		}

		var body io.Reader
		if r.body != nil {
			body = bytes.NewReader(r.body)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, url, body)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set(RequestIDHeader, requestID)
		if r.contentType != "" {
			req.Header.Set("Content-Type", r.contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing %s %s: %w", r.method, r.path, err)
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &APIError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("rate limited (attempt %d/%d)", attempt+1, c.maxRetries+1),
				Endpoint:   r.method + " " + r.path,
				RequestID:  requestID,
			}
			if attempt < c.maxRetries {
				delay := c.baseDelay * time.Duration(1<<uint(attempt))
				slog.Debug("remote: retrying after 429", "path", r.path, "attempt", attempt+1, "delay", delay)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, newAPIError(resp.StatusCode, r, requestID, respBody)
		}

		if err := checkEnvelope(respBody); err != nil {
			apiErr := newAPIError(resp.StatusCode, r, requestID, respBody)
			apiErr.Message = err.Error()
			return nil, apiErr
		}
		return respBody, nil
	}

	return nil, lastErr
}

// call executes r and decodes the successful body into dest when dest is non-nil.
func (c *Client) call(ctx context.Context, r request, dest any) error {
	body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if dest == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing JSON from %s: %w", r.path, err)
	}
	return nil
}

func (c *Client) callJSON(ctx context.Context, method, path string, payload, dest any) error {
	r, err := jsonRequest(method, path, payload)
	if err != nil {
		return err
	}
	return c.call(ctx, r, dest)
}
