// Package serverfetch performs backend calls on behalf of a server-rendered request.
// Every failure collapses to "no data"; callers render a fallback.
package serverfetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/vibolsen/campus-portal/internal/gateway"
	"github.com/vibolsen/campus-portal/internal/observability/metrics"
	"github.com/vibolsen/campus-portal/internal/observability/statsd"
	"github.com/vibolsen/campus-portal/internal/ports"
)

const maxResponseBytes = 8 << 20

// Options shape one request. The zero value is a GET without a body.
type Options struct {
	Method string
	// Body is sent as-is when it is []byte, string or io.Reader; anything else is JSON-encoded.
	Body    any
	Headers map[string]string
}

// Config configures a Fetcher.
type Config struct {
	BaseURL    string
	Principals ports.PrincipalSource
	// Timeout bounds each call; zero imposes none beyond ctx.
	Timeout time.Duration
	Client  *http.Client
	Metrics statsd.Sink
	Logger  *slog.Logger
}

// Fetcher injects the request principal's bearer token into backend calls.
// It holds no mutable state and is safe for concurrent use.
type Fetcher struct {
	base       *url.URL
	principals ports.PrincipalSource
	client     *http.Client
	metrics    statsd.Sink
	logger     *slog.Logger
}

// New validates cfg and builds a Fetcher.
func New(cfg Config) (*Fetcher, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q", cfg.BaseURL)
	}
	if cfg.Principals == nil {
		return nil, fmt.Errorf("principal source is required")
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	sink := cfg.Metrics
	if sink == nil {
		sink = statsd.Discard
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		base:       base,
		principals: cfg.Principals,
		client:     hc,
		metrics:    sink,
		logger:     logger.With("component", "server_fetch"),
	}, nil
}

// Request calls endpoint and returns the raw JSON body on a 2xx response.
// Non-2xx responses and transport failures yield (nil, false). A 2xx with an
// empty body yields (nil, true).
func (f *Fetcher) Request(ctx context.Context, endpoint string, opts Options) (body json.RawMessage, ok bool) {
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = http.MethodGet
	}
	start := time.Now()
	status := 0
	var callErr error
	defer func() {
		if r := recover(); r != nil {
			f.logger.ErrorContext(ctx, "panic during backend fetch", "panic", r, "endpoint", endpoint)
			body, ok = nil, false
		}
		metrics.EmitFetch(f.metrics, metrics.FetchMetric{
			Context:  gateway.Server.String(),
			Method:   method,
			Status:   status,
			Duration: time.Since(start),
			Err:      callErr,
		})
	}()

	req, err := f.newRequest(ctx, method, endpoint, opts)
	if err != nil {
		callErr = err
		f.logger.WarnContext(ctx, "build backend request failed", "error", err, "endpoint", endpoint)
		return nil, false
	}

	resp, err := f.client.Do(req)
	if err != nil {
		callErr = err
		f.logger.WarnContext(ctx, "backend request failed", "error", err, "endpoint", endpoint)
		return nil, false
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if status < 200 || status >= 300 {
		if status == http.StatusUnauthorized {
			f.logger.WarnContext(ctx, "backend rejected server-side credentials",
				"endpoint", endpoint, "method", method, "status", status)
		} else {
			f.logger.DebugContext(ctx, "backend returned non-OK", "endpoint", endpoint, "status", status)
		}
		return nil, false
	}
	if err != nil {
		callErr = err
		f.logger.WarnContext(ctx, "read backend response failed", "error", err, "endpoint", endpoint)
		return nil, false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, true
	}
	return json.RawMessage(raw), true
}

func (f *Fetcher) newRequest(ctx context.Context, method, endpoint string, opts Options) (*http.Request, error) {
	target, err := f.resolve(endpoint)
	if err != nil {
		return nil, err
	}
	reader, err := bodyReader(opts.Body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if p, ok := f.principals.CurrentPrincipal(ctx); ok && p.Valid() {
		(&oauth2.Token{AccessToken: p.AccessToken}).SetAuthHeader(req)
	}
	return req, nil
}

func (f *Fetcher) resolve(endpoint string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		if !strings.EqualFold(ref.Host, f.base.Host) {
			return "", fmt.Errorf("endpoint %q is outside %s", endpoint, f.base.Host)
		}
		if ref.Scheme == "" {
			ref.Scheme = f.base.Scheme
		}
		return ref.String(), nil
	}
	u := *f.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	u.RawQuery = ref.RawQuery
	return u.String(), nil
}

func bodyReader(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	case io.Reader:
		return b, nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return bytes.NewReader(raw), nil
	}
}

// FetchJSON calls endpoint and decodes a 2xx body into T.
// Any failure, including an undecodable body, yields (zero, false).
func FetchJSON[T any](ctx context.Context, f *Fetcher, endpoint string, opts Options) (T, bool) {
	var out T
	raw, ok := f.Request(ctx, endpoint, opts)
	if !ok {
		return out, false
	}
	if len(raw) == 0 {
		return out, true
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		f.logger.WarnContext(ctx, "decode backend response failed", "error", err, "endpoint", endpoint)
		var zero T
		return zero, false
	}
	return out, true
}
