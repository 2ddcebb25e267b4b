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
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/timzifer/pharmadesk/config"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const maxErrorBody = 64 << 10

// Failure reports a backend call that did not succeed. Its message is the
// server supplied one when present, so it can be shown to the user as is.
type Failure struct {
	Op         string
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (f *Failure) Error() string {
	if f.Message != "" {
		return f.Message
	}
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Op, f.Err)
	}
	return fmt.Sprintf("%s: %s %s: %d %s", f.Op, f.Method, f.Path, f.StatusCode, http.StatusText(f.StatusCode))
}

func (f *Failure) Unwrap() error { return f.Err }

// Temporary reports whether retrying the request may succeed.
func (f *Failure) Temporary() bool {
	if f.StatusCode == 0 {
		return !errors.Is(f.Err, context.Canceled) && !errors.Is(f.Err, context.DeadlineExceeded)
	}
	return f.StatusCode >= http.StatusInternalServerError || f.StatusCode == http.StatusTooManyRequests
}

// TokenSource supplies the bearer token of the current session.
type TokenSource interface {
	Token() string
}

// Metrics receives request latencies.
type Metrics interface {
	ObserveRemoteCall(operation string, statusCode int, elapsed time.Duration)
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTokenSource attaches the session token provider.
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) { c.tokens = tokens }
}

// WithMetrics attaches a latency observer.
func WithMetrics(metrics Metrics) Option {
	return func(c *Client) { c.metrics = metrics }
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client talks to the ordering REST API. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	tokens  TokenSource
	metrics Metrics
	logger  zerolog.Logger
	retry   config.RetryConfig
}

// New creates a client for the configured backend.
func New(cfg config.BackendConfig, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("backend base url is required")
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: timeout},
		logger: zerolog.Nop(),
		retry:  cfg.Retry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the resolved API root.
func (c *Client) BaseURL() string { return c.base.String() }

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
}

func (c *Client) call(ctx context.Context, req request, out any) error {
	if req.method != http.MethodGet {
		return c.once(ctx, req, out)
	}
	policy := c.backoff(ctx)
	return backoff.Retry(func() error {
		err := c.once(ctx, req, out)
		var failure *Failure
		if errors.As(err, &failure) && !failure.Temporary() {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func (c *Client) backoff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	if c.retry.InitialInterval.Duration > 0 {
		exp.InitialInterval = c.retry.InitialInterval.Duration
	}
	if c.retry.MaxInterval.Duration > 0 {
		exp.MaxInterval = c.retry.MaxInterval.Duration
	}
	retries := c.retry.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}

func (c *Client) once(ctx context.Context, req request, out any) error {
	target := c.base.ResolveReference(&url.URL{Path: req.path})
	if len(req.query) > 0 {
		target.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return &Failure{Op: req.op, Method: req.method, Path: req.path, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), body)
	if err != nil {
		return &Failure{Op: req.op, Method: req.method, Path: req.path, Err: err}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(RequestIDHeader, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	elapsed := time.Since(start)
	logger := c.logger.With().Str("operation", req.op).Str("method", req.method).Str("path", req.path).Str("request_id", requestID).Logger()
	if err != nil {
		c.observe(req.op, 0, elapsed)
		logger.Debug().Err(err).Dur("duration", elapsed).Msg("backend request failed")
		return &Failure{Op: req.op, Method: req.method, Path: req.path, Err: err}
	}
	defer resp.Body.Close()
	c.observe(req.op, resp.StatusCode, elapsed)
	logger.Debug().Int("status", resp.StatusCode).Dur("duration", elapsed).Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Failure{
			Op:         req.op,
			Method:     req.method,
			Path:       req.path,
			StatusCode: resp.StatusCode,
			Message:    serverMessage(raw),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Failure{Op: req.op, Method: req.method, Path: req.path, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Failure{Op: req.op, Method: req.method, Path: req.path, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) observe(op string, code int, elapsed time.Duration) {
	if c.metrics != nil {
		c.metrics.ObserveRemoteCall(op, code, elapsed)
	}
}

func serverMessage(raw []byte) string {
	var body struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Message) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(body.Message, &text); err == nil {
		return strings.TrimSpace(text)
	}
	// Some endpoints report field errors as a list.
	var list []string
	if err := json.Unmarshal(body.Message, &list); err == nil {
		return strings.Join(list, "، ")
	}
	return ""
}

func pageQuery(page PageRequest) url.Values {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page.Page))
	query.Set("limit", strconv.Itoa(page.Limit))
	return query
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, strconv.FormatInt(id, 10))
}
