package officeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spacebook/spacebook-api/internal/pkg/logger"
)

const (
	defaultTimeout = 10 * time.Second
	previewLength  = 120
)

// Config configures the backend client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// CacheBust appends a _ts query parameter to every request.
	CacheBust bool
	// Debug logs every outbound call.
	Debug bool
}

// Client talks to the office booking backend.
type Client struct {
	baseURL   string
	ua        string
	cacheBust bool
	debug     bool
	http      *http.Client
	tokens    TokenSource
	recorder  Recorder
	now       func() time.Time
}

// Response is a raw backend response of any status.
type Response struct {
	Method     string
	Path       string
	Status     int
	StatusText string
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Empty reports a response without a body.
func (r *Response) Empty() bool {
	return r == nil || len(bytes.TrimSpace(r.Body)) == 0
}

// NewClient creates a new backend client. tokens may be nil for anonymous use.
func NewClient(cfg Config, tokens TokenSource) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if tokens == nil {
		tokens = StaticToken("")
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		ua:        cfg.UserAgent,
		cacheBust: cfg.CacheBust,
		debug:     cfg.Debug,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		tokens: tokens,
		now:    time.Now,
	}
}

// SetRecorder installs a recorder notified of every resolution outcome.
func (c *Client) SetRecorder(r Recorder) {
	c.recorder = r
}

// Token returns the bearer token for the current call. It is read from the
// token source every time so a logout is seen by the next request.
func (c *Client) Token(ctx context.Context) string {
	return strings.TrimSpace(c.tokens.Token(ctx))
}

// Do performs a call with the current token and returns the response for any status.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	return c.DoWithToken(ctx, method, path, body, c.Token(ctx))
}

// DoWithToken performs a call with an explicit bearer token ("" for none).
func (c *Client) DoWithToken(ctx context.Context, method, path string, body interface{}, token string) (*Response, error) {
	if c == nil || c.http == nil {
		return nil, fmt.Errorf("backend request error: client is nil")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("backend config error: base_url is empty")
	}

	var reader io.Reader
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("backend request error: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	url := c.URL(path)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("backend request error: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}
	if requestID := logger.RequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	if c.debug {
		logger.LogDebug(ctx, "backend request",
			"method", method,
			"url", url,
			"body", preview(payload),
		)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyRequestError(ctx, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyRequestError(ctx, method, path, err)
	}

	if c.debug {
		logger.LogDebug(ctx, "backend response",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
	}

	return &Response{
		Method:     method,
		Path:       path,
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Body:       data,
	}, nil
}

// Request performs a call with the current token and decodes the result.
// Non-2xx responses become *APIError; empty bodies return nil.
func (c *Client) Request(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	return c.RequestWithToken(ctx, method, path, body, c.Token(ctx))
}

// RequestWithToken is Request with an explicit bearer token.
func (c *Client) RequestWithToken(ctx context.Context, method, path string, body interface{}, token string) (json.RawMessage, error) {
	resp, err := c.DoWithToken(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, NewAPIError(resp)
	}
	if resp.Status == http.StatusNoContent || resp.Empty() {
		return nil, nil
	}
	if !json.Valid(resp.Body) {
		return nil, nil
	}
	return json.RawMessage(resp.Body), nil
}

// URL builds the absolute URL for path, with the cache buster when enabled.
func (c *Client) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if c.cacheBust {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		path = path + sep + "_ts=" + strconv.FormatInt(c.now().UnixMilli(), 10)
	}
	return c.baseURL + path
}

func preview(payload []byte) string {
	if len(payload) > previewLength {
		return string(payload[:previewLength])
	}
	return string(payload)
}
