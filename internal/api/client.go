package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bagger/internal/apperror"
)

// DefaultTimeout is the per-request deadline used when none is configured.
const DefaultTimeout = 10 * time.Second

// TokenSource supplies the bearer token for outgoing requests.
// An empty token means the request is sent without Authorization.
type TokenSource interface {
	Token() string
}

// Logger is the subset of structured logging the client needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// Client is a JSON client for the bagger REST backend.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	tokens  TokenSource
	logger  Logger

	mu             sync.RWMutex
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTokenSource sets where the bearer token comes from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the client logger.
func WithLogger(l Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: DefaultTimeout,
		logger:  nopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// OnUnauthorized registers fn to be called whenever the backend answers 401.
// Replaces any previously registered handler.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// Do sends a JSON request and decodes a JSON response into out.
// body and out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	_, err := c.do(ctx, method, path, body, out)
	return err
}

// do is Do that also reports whether a response body was decoded into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	url := c.url(path)
	req, err := http.NewRequestWithContext(reqCtx, method, url, reader)
	if err != nil {
		return false, fmt.Errorf("building request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.Debug("api request", "method", method, "path", path, "request_id", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, classifyTransportError(ctx, reqCtx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, classifyTransportError(ctx, reqCtx, err)
	}

	isJSON := isJSONContent(resp.Header.Get("Content-Type"))

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("api unauthorized", "method", method, "path", path, "request_id", requestID)
		c.mu.RLock()
		handler := c.onUnauthorized
		c.mu.RUnlock()
		if handler != nil {
			handler()
		}
		return false, apperror.ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload []byte
		if isJSON {
			payload = data
		}
		msg := extractErrorMessage(payload, fmt.Sprintf("API Error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
		c.logger.Warn("api error", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID, "message", msg)
		return false, &apperror.APIError{Status: resp.StatusCode, Message: msg}
	}

	if resp.StatusCode == http.StatusNoContent || out == nil || !isJSON || len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if string(bytes.TrimSpace(data)) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decoding response from %s %s: %w", method, path, err)
	}
	return true, nil
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// classifyTransportError maps a failed round trip to the error taxonomy.
// Cancellation by the caller is returned as-is; the client's own deadline
// becomes ErrTimeout.
func classifyTransportError(parent, reqCtx context.Context, err error) error {
	if parentErr := parent.Err(); parentErr != nil {
		return parentErr
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return apperror.ErrTimeout
	}
	return apperror.Network(err)
}

func isJSONContent(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
