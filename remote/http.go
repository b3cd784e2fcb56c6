package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds every call made by an [HTTPCaller] built without
	// an explicit client or timeout.
	DefaultTimeout = 15 * time.Second

	maxResponseBytes = 1 << 20
)

// ErrInvalidBaseURL is returned by [NewHTTPCaller] for unusable base URLs.
var ErrInvalidBaseURL = errors.New("invalid base url")

// HTTPCaller is a [Caller] backed by net/http.
type HTTPCaller struct {
	baseURL   *url.URL
	client    *http.Client
	userAgent string
}

// Option configures an [HTTPCaller].
type Option func(*HTTPCaller)

// WithHTTPClient replaces the underlying client. The caller's own timeout
// is then whatever the supplied client carries.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPCaller) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTimeout sets the per-call timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPCaller) {
		if d > 0 {
			clone := *c.client
			clone.Timeout = d
			c.client = &clone
		}
	}
}

// WithUserAgent sets the User-Agent header sent on every call.
func WithUserAgent(userAgent string) Option {
	return func(c *HTTPCaller) {
		c.userAgent = strings.TrimSpace(userAgent)
	}
}

// NewHTTPCaller builds a caller that resolves request paths against baseURL.
func NewHTTPCaller(baseURL string, opts ...Option) (*HTTPCaller, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https", ErrInvalidBaseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}

	c := &HTTPCaller{
		baseURL: u,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Call implements [Caller].
func (c *HTTPCaller) Call(ctx context.Context, method, path string, body any, token string) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	requestID, ok := RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
	}, nil
}

func (c *HTTPCaller) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.baseURL.JoinPath(path).String()
	}
	u := c.baseURL.JoinPath(ref.Path)
	u.RawQuery = ref.RawQuery
	return u.String()
}
