// Package upstream fetches single records from the resource services the
// gateway aggregates.
//
// A Client is bound to one base address. Fetch never retries and reduces
// every failure to a *FetchError carrying a Classification, so callers can
// branch on a type instead of matching error strings.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deppfellow/bicycle-gateway/internal/validation"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
)

// Observer receives one call per finished fetch. class is "ok" on success,
// otherwise the Classification string.
type Observer interface {
	ObserveFetch(upstream, class string, d time.Duration)
}

// Option customizes a Client.
type Option func(*options)

type options struct {
	transport     http.RoundTripper
	observer      Observer
	slowThreshold time.Duration
}

// WithTransport replaces the base transport (http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithSlowThreshold logs a warning for fetches slower than d. Zero disables it.
func WithSlowThreshold(d time.Duration) Option {
	return func(o *options) { o.slowThreshold = d }
}

// Client fetches records of type T by key.
//
// If *T implements validation.Validatable, decoded records are validated and
// a record that fails is treated as a malformed payload.
type Client[T any] struct {
	name          string
	baseURL       string
	maxBodyBytes  int64
	httpClient    *http.Client
	observer      Observer
	slowThreshold time.Duration
}

// NewClient builds a client for the upstream called name at baseURL.
// timeout bounds the whole exchange, body read included.
func NewClient[T any](name, baseURL string, timeout time.Duration, maxBodyBytes int64, opts ...Option) *Client[T] {
	o := options{transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	return &Client[T]{
		name:         name,
		baseURL:      strings.TrimRight(baseURL, "/"),
		maxBodyBytes: maxBodyBytes,
		httpClient: &http.Client{
			Timeout: timeout,
			// External segments are attached to the transaction in the request context.
			Transport: newrelic.NewRoundTripper(o.transport),
		},
		observer:      o.observer,
		slowThreshold: o.slowThreshold,
	}
}

func (c *Client[T]) Name() string {
	return c.name
}

// Fetch performs GET {base}/{key} and decodes the record.
func (c *Client[T]) Fetch(ctx context.Context, key string) (*T, error) {
	// Segments started from concurrent fetches need their own goroutine handle.
	if txn := newrelic.FromContext(ctx); txn != nil {
		ctx = newrelic.NewContext(ctx, txn.NewGoroutine())
	}

	start := time.Now()
	record, err := c.fetch(ctx, key)
	duration := time.Since(start)

	class := "ok"
	if err != nil {
		class = ClassOf(err).String()
	}

	if c.observer != nil {
		c.observer.ObserveFetch(c.name, class, duration)
	}

	logger := zerolog.Ctx(ctx)
	if c.slowThreshold > 0 && duration > c.slowThreshold {
		logger.Warn().
			Str("upstream", c.name).
			Str("key", key).
			Str("class", class).
			Dur("duration", duration).
			Dur("threshold", c.slowThreshold).
			Msg("slow upstream fetch")
	}

	if err != nil {
		logger.Debug().
			Err(err).
			Str("upstream", c.name).
			Str("key", key).
			Dur("duration", duration).
			Msg("upstream fetch failed")
	}

	return record, err
}

func (c *Client[T]) fetch(ctx context.Context, key string) (*T, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, c.fail(Unclassified, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if id := RequestIDFromContext(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(Unclassified, 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		drain(resp.Body)
		return nil, c.fail(NotFound, resp.StatusCode, fmt.Errorf("record %q not found", key))
	case resp.StatusCode == http.StatusBadRequest:
		drain(resp.Body)
		return nil, c.fail(BadRequest, resp.StatusCode, fmt.Errorf("key %q rejected", key))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		drain(resp.Body)
		return nil, c.fail(Unclassified, resp.StatusCode, errors.New("unexpected status"))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, c.fail(Unclassified, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	if int64(len(data)) > c.maxBodyBytes {
		return nil, c.fail(Unclassified, resp.StatusCode, fmt.Errorf("body exceeds %d bytes", c.maxBodyBytes))
	}

	var record T
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, c.fail(Unclassified, resp.StatusCode, fmt.Errorf("decode body: %w", err))
	}

	if v, ok := any(&record).(validation.Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, c.fail(Unclassified, resp.StatusCode, fmt.Errorf("invalid record: %w", err))
		}
	}

	return &record, nil
}

func (c *Client[T]) fail(class Classification, status int, err error) *FetchError {
	return &FetchError{Upstream: c.name, Class: class, StatusCode: status, Err: err}
}

// Ping checks that the upstream host accepts TCP connections.
func (c *Client[T]) Ping(ctx context.Context) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse %s base url: %w", c.name, err)
	}

	addr := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		addr = net.JoinHostPort(u.Hostname(), port)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s upstream: %w", c.name, err)
	}

	return conn.Close()
}

// drain lets the connection be reused after an error status.
func drain(body io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4<<10))
}
