// Package client is the API gateway used by the terminal client. It attaches
// the bearer token, defeats response caching, clears the session on 401 and
// queues mutating requests while offline for later replay.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nhle/todolist/internal/localstore"
)

// TokenStore persists the session token. Token returns "" when signed out.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
	ClearToken() error
}

// Connectivity reports whether the server is believed reachable.
type Connectivity interface {
	Online() bool
}

// Options configures a Client. Zero values get working defaults.
type Options struct {
	HTTPClient   *http.Client
	Tokens       TokenStore
	Storage      localstore.Storage
	Connectivity Connectivity
	Logger       *slog.Logger
	// FlushWorkers bounds concurrent replays in FlushQueue. The default of
	// one replays in enqueue order, so a later change to the same todo
	// reaches the server last.
	FlushWorkers int
}

// Client talks to the todo REST API.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	tokens       TokenStore
	connectivity Connectivity
	logger       *slog.Logger
	queue        *queue
	flushWorkers int

	// bust is the last cache-busting value handed out.
	bust atomic.Int64
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Storage == nil {
		opts.Storage = localstore.NewMemoryStorage()
	}
	if opts.Tokens == nil {
		opts.Tokens = &memoryTokens{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.FlushWorkers <= 0 {
		opts.FlushWorkers = 1
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   opts.HTTPClient,
		tokens:       opts.Tokens,
		connectivity: opts.Connectivity,
		logger:       opts.Logger,
		queue:        &queue{storage: opts.Storage},
		flushWorkers: opts.FlushWorkers,
	}
	c.bust.Store(time.Now().UnixMilli())
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

// Authenticated reports whether a session token is stored.
func (c *Client) Authenticated() bool {
	tok, err := c.tokens.Token()
	return err == nil && tok != ""
}

func (c *Client) online() bool {
	return c.connectivity == nil || c.connectivity.Online()
}

// nextBust returns a strictly increasing cache-busting value, at least the
// current Unix time in milliseconds.
func (c *Client) nextBust() int64 {
	for {
		prev := c.bust.Load()
		next := time.Now().UnixMilli()
		if next <= prev {
			next = prev + 1
		}
		if c.bust.CompareAndSwap(prev, next) {
			return next
		}
	}
}

// queueable reports whether a failed request may be deferred. Reads and
// session endpoints are never queued.
func queueable(method, path string) bool {
	if method == http.MethodGet {
		return false
	}
	switch path {
	case "/api/register", "/api/login", "/api/logout":
		return false
	}
	return true
}

// do sends one request. body may be nil, a []byte of encoded JSON or any
// value to encode. result may be nil.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body any,
	result any,
) error {
	var payload []byte
	switch b := body.(type) {
	case nil:
	case []byte:
		payload = b
	case json.RawMessage:
		payload = b
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	if !c.online() {
		return c.offline(ctx, method, path, payload, ErrOffline)
	}

	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		netErr := &NetworkError{Method: method, Path: path, Err: err}
		if !c.online() {
			return c.offline(ctx, method, path, payload, netErr)
		}
		return netErr
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return &NetworkError{Method: method, Path: path, Err: fmt.Errorf("reading response body: %w", readErr)}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if err := c.tokens.ClearToken(); err != nil {
			c.logger.Warn("clearing token after 401", "error", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &e) == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if result == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
	}
	return nil
}

// send performs the HTTP exchange with auth and no-cache headers.
func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	target := c.baseURL + path
	if method == http.MethodGet {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		target += sep + "_t=" + url.QueryEscape(strconv.FormatInt(c.nextBust(), 10))
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	req.Header.Set("Pragma", "no-cache")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok, err := c.tokens.Token(); err != nil {
		c.logger.Warn("reading session token", "error", err)
	} else if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	return c.httpClient.Do(req)
}

// offline queues the request when allowed and returns ErrQueued, or returns
// cause unchanged.
func (c *Client) offline(ctx context.Context, method, path string, payload []byte, cause error) error {
	if !queueable(method, path) {
		if cause == ErrOffline {
			return fmt.Errorf("%s %s: %w", method, path, ErrOffline)
		}
		return cause
	}

	entry, err := c.queue.push(method, path, queueRef(ctx), payload)
	if err != nil {
		c.logger.Error("queueing offline request", "method", method, "path", path, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.logger.Info("request queued for later", "id", entry.ID, "method", method, "path", path, "ref", entry.Ref)
	return fmt.Errorf("%s %s: %w", method, path, ErrQueued)
}

type memoryTokens struct {
	tok atomic.Value
}

func (m *memoryTokens) Token() (string, error) {
	v, _ := m.tok.Load().(string)
	return v, nil
}

func (m *memoryTokens) SetToken(token string) error {
	m.tok.Store(token)
	return nil
}

func (m *memoryTokens) ClearToken() error {
	m.tok.Store("")
	return nil
}
