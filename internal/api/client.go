// Package api is the gateway to the finance backend REST service.
//
// Every method maps to one endpoint, unwraps the backend's response envelope
// and returns only its data. Failures are reported as *Error. The gateway
// never retries.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"finclient/internal/log"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseSize = 10 << 20
)

// TokenStore holds the bearer token attached to outgoing requests.
type TokenStore interface {
	Token() string
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Envelope is the wrapper the backend puts around every payload.
type Envelope[T any] struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      T      `json:"data"`
	Timestamp string `json:"timestamp"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	tokens     TokenStore
	logger     *log.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is used as-is.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentAPI) }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a gateway for baseURL (e.g. http://localhost:8080/api).
// A nil tokens keeps the token in memory only.
func New(baseURL string, tokens TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		timeout: defaultTimeout,
		logger:  log.Default().WithComponent(log.ComponentAPI),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil {
		c.tokens = &MemoryTokens{}
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout:   c.timeout,
			Transport: log.Transport(c.logger, nil),
		}
	}
	return c
}

// BaseURL returns the backend base URL without trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type response struct {
	status int
	body   []byte
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload any) (*response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, networkError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, data)
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

// call performs the request and unwraps the envelope's data field.
func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, payload any) (T, error) {
	var zero T
	resp, err := c.send(ctx, method, path, query, payload)
	if err != nil {
		return zero, err
	}
	var env Envelope[T]
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return zero, decodeError(resp.status, err)
	}
	return env.Data, nil
}

// list is call for collection endpoints; it never returns a nil slice on success.
func list[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	items, err := call[[]T](ctx, c, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *Client) remove(ctx context.Context, path string) error {
	_, err := c.send(ctx, http.MethodDelete, path, nil, nil)
	return err
}

func resourcePath(resource string, id int64, rest ...string) string {
	parts := append([]string{"", resource, strconv.FormatInt(id, 10)}, rest...)
	return strings.Join(parts, "/")
}

// MemoryTokens is a TokenStore that keeps the token in memory only.
type MemoryTokens struct {
	mu    sync.RWMutex
	token string
}

func (m *MemoryTokens) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *MemoryTokens) SetToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokens) ClearToken(_ context.Context) error {
	return m.SetToken(context.Background(), "")
}
