// Package clientfetch performs backend calls on behalf of the interactive client.
//
// Credentials come from client-local token storage. Authorization failures
// (401/403) are routed to a FailureHandler before the error is returned;
// every other failure is returned with no side effects.
package clientfetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vibolsen/campus-portal/config"
	apperrors "github.com/vibolsen/campus-portal/internal/errors"
	"github.com/vibolsen/campus-portal/internal/gateway"
	"github.com/vibolsen/campus-portal/internal/gateway/coordinator"
	"github.com/vibolsen/campus-portal/internal/observability/metrics"
	"github.com/vibolsen/campus-portal/internal/observability/statsd"
	"github.com/vibolsen/campus-portal/internal/payload"
	"github.com/vibolsen/campus-portal/internal/ports"
)

// FailureHandler receives authorization failures. *coordinator.Coordinator implements it.
type FailureHandler interface {
	HandleFailure(ctx context.Context, f coordinator.Failure)
}

// File is one part of a multipart upload.
type File struct {
	Field       string
	Name        string
	ContentType string
	Reader      io.Reader
}

// Multipart is a form body. The transport chooses the content type and boundary.
type Multipart struct {
	Fields map[string]string
	Files  []File
}

// ResponseError is returned for every non-2xx response.
type ResponseError struct {
	StatusCode int
	Message    string
	Err        *apperrors.AppError
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Message)
}

func (e *ResponseError) Unwrap() error { return e.Err }

// Config configures a Client.
type Config struct {
	BaseURL  string
	Storage  ports.TokenStorage
	Failures FailureHandler
	// ErrorPath locates the message in an error payload.
	ErrorPath string
	// Timeout bounds each call; zero imposes none beyond ctx.
	Timeout time.Duration
	Jar     http.CookieJar
	// HTTPClient overrides the underlying transport client, mainly for tests.
	HTTPClient *http.Client
	Metrics    statsd.Sink
	Logger     *slog.Logger
}

// Client is safe for concurrent use.
type Client struct {
	rc        *resty.Client
	storage   ports.TokenStorage
	failures  FailureHandler
	errorPath payload.Path
	metrics   statsd.Sink
	logger    *slog.Logger
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("client fetch: base url is required")
	}
	if cfg.Storage == nil {
		return nil, errors.New("client fetch: token storage is required")
	}
	expr := cfg.ErrorPath
	if strings.TrimSpace(expr) == "" {
		expr = config.DefaultErrorPath
	}
	errorPath, err := payload.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("client fetch: error path: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "clientfetch")
	sink := cfg.Metrics
	if sink == nil {
		sink = statsd.Discard
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(base).SetLogger(restyLogger{logger})
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	if cfg.Jar != nil {
		rc.SetCookieJar(cfg.Jar)
	}

	c := &Client{
		rc:        rc,
		storage:   cfg.Storage,
		failures:  cfg.Failures,
		errorPath: errorPath,
		metrics:   sink,
		logger:    logger,
	}
	rc.OnBeforeRequest(c.injectToken)
	return c, nil
}

// injectToken runs on every request; resty renders it as "Bearer <token>".
func (c *Client) injectToken(_ *resty.Client, r *resty.Request) error {
	if tok, ok := c.storage.Token(); ok && tok != "" {
		r.SetAuthToken(tok)
	}
	return nil
}

// Get fetches path and decodes the response into out (which may be nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body to path. body may be a Multipart.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put sends body to path. body may be a Multipart.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete removes path.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do performs one request.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) (err error) {
	start := time.Now()
	status := 0
	defer func() {
		metrics.EmitFetch(c.metrics, metrics.FetchMetric{
			Context:  string(gateway.Client),
			Method:   method,
			Status:   status,
			Duration: time.Since(start),
			Err:      err,
		})
	}()

	req := c.rc.R().SetContext(ctx)
	switch b := body.(type) {
	case nil:
		req.SetHeader("Content-Type", "application/json")
	case Multipart:
		setMultipart(req, &b)
	case *Multipart:
		setMultipart(req, b)
	default:
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	req.SetHeader("Accept", "application/json")

	resp, err := req.Execute(method, path)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err):
			return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "backend request timed out")
		case ctx.Err() != nil:
			return apperrors.Wrap(err, apperrors.ErrCodeCanceled, "request canceled")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeUnreachable, "backend unreachable")
	}
	status = resp.StatusCode()

	if !resp.IsSuccess() {
		respErr := c.responseError(status, resp.Body())
		if f, ok := coordinator.FailureFromStatus(status); ok && c.failures != nil {
			f.Method = method
			f.Path = path
			c.failures.HandleFailure(ctx, f)
		}
		return respErr
	}

	raw := resp.Body()
	if out == nil || len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeMalformedResponse, "malformed response body")
	}
	return nil
}

// isTimeout covers deadlines set on the HTTP client rather than on ctx.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *Client) responseError(status int, raw []byte) *ResponseError {
	msg := ""
	if doc, err := payload.Decode(raw); err == nil {
		if text, ok := c.errorPath.Text(doc); ok {
			msg = strings.TrimSpace(text)
		}
	}
	appErr := apperrors.FromStatus(status, msg)
	return &ResponseError{StatusCode: status, Message: appErr.Message, Err: appErr}
}

func setMultipart(req *resty.Request, m *Multipart) {
	if len(m.Fields) > 0 {
		req.SetFormData(m.Fields)
	}
	parts := make([]*resty.MultipartField, 0, len(m.Files))
	for _, f := range m.Files {
		parts = append(parts, &resty.MultipartField{
			Param:       f.Field,
			FileName:    f.Name,
			ContentType: f.ContentType,
			Reader:      f.Reader,
		})
	}
	req.SetMultipartFields(parts...)
}

// restyLogger routes resty's own diagnostics into slog.
type restyLogger struct{ l *slog.Logger }

func (r restyLogger) Errorf(format string, v ...any) { r.l.Error(fmt.Sprintf(format, v...)) }
func (r restyLogger) Warnf(format string, v ...any)  { r.l.Warn(fmt.Sprintf(format, v...)) }
func (r restyLogger) Debugf(format string, v ...any) { r.l.Debug(fmt.Sprintf(format, v...)) }
