// Package coordinator reacts to authorization failures seen by the client fetcher.
//
// Every failure clears client token storage. The first failure of an episode
// also shows one session-expired notice and schedules one delayed redirect to
// the login page; later failures in the same episode only clear storage.
package coordinator

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vibolsen/campus-portal/internal/observability/metrics"
	"github.com/vibolsen/campus-portal/internal/observability/statsd"
	"github.com/vibolsen/campus-portal/internal/ports"
)

// Kind distinguishes missing/expired credentials from insufficient permission.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
)

// Failure describes one authorization failure.
type Failure struct {
	Status int
	Kind   Kind
	Method string
	Path   string
}

// FailureFromStatus classifies a response status. Only 401 and 403 are failures.
func FailureFromStatus(status int) (Failure, bool) {
	switch status {
	case http.StatusUnauthorized:
		return Failure{Status: status, Kind: KindUnauthenticated}, true
	case http.StatusForbidden:
		return Failure{Status: status, Kind: KindForbidden}, true
	default:
		return Failure{}, false
	}
}

// Policy reports whether a failure invalidates the session.
type Policy func(Failure) bool

// InvalidateAll treats 401 and 403 alike.
func InvalidateAll(Failure) bool { return true }

// InvalidateUnauthenticatedOnly leaves the session intact on 403.
func InvalidateUnauthenticatedOnly(f Failure) bool { return f.Kind != KindForbidden }

const (
	defaultLoginPath     = "/login"
	defaultRedirectDelay = 2 * time.Second
	defaultNoticeKey     = "session-expired"
	defaultNoticeMessage = "Your session has expired. Please log in again."
)

// Config configures a Coordinator.
type Config struct {
	Storage   ports.TokenStorage
	Notifier  ports.Notifier
	Navigator ports.Navigator

	LoginPath     string
	RedirectDelay time.Duration
	Notice        ports.Notification
	// Policy defaults to InvalidateAll.
	Policy  Policy
	Metrics statsd.Sink
	Logger  *slog.Logger
}

// Coordinator serializes episode state so concurrent failures produce one
// notification and one redirect. It is safe for concurrent use.
type Coordinator struct {
	storage   ports.TokenStorage
	notifier  ports.Notifier
	navigator ports.Navigator
	loginPath string
	delay     time.Duration
	notice    ports.Notification
	policy    Policy
	metrics   statsd.Sink
	logger    *slog.Logger

	mu         sync.Mutex
	pending    *time.Timer
	navigating bool
	// done stays open from scheduling until navigation returns or Stop runs.
	done chan struct{}
}

// New builds a Coordinator, filling defaults for unset fields.
func New(cfg Config) *Coordinator {
	loginPath := strings.TrimSpace(cfg.LoginPath)
	if loginPath == "" {
		loginPath = defaultLoginPath
	}
	delay := cfg.RedirectDelay
	if delay < 0 {
		delay = defaultRedirectDelay
	}
	notice := cfg.Notice
	if notice.DedupeKey == "" {
		notice.DedupeKey = defaultNoticeKey
	}
	if notice.Message == "" {
		notice.Message = defaultNoticeMessage
	}
	if notice.Severity == "" {
		notice.Severity = ports.SeverityWarning
	}
	if notice.Duration < delay {
		notice.Duration = delay
	}
	policy := cfg.Policy
	if policy == nil {
		policy = InvalidateAll
	}
	sink := cfg.Metrics
	if sink == nil {
		sink = statsd.Discard
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		storage:   cfg.Storage,
		notifier:  cfg.Notifier,
		navigator: cfg.Navigator,
		loginPath: loginPath,
		delay:     delay,
		notice:    notice,
		policy:    policy,
		metrics:   sink,
		logger:    logger.With("component", "unauthorized_coordinator"),
	}
}

// LoginPath returns the login destination.
func (c *Coordinator) LoginPath() string { return c.loginPath }

// HandleFailure runs the invalidation steps for f. It never panics and never fails.
func (c *Coordinator) HandleFailure(ctx context.Context, f Failure) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorContext(ctx, "panic while handling authorization failure", "panic", r)
		}
	}()

	if f.Kind == "" {
		if classified, ok := FailureFromStatus(f.Status); ok {
			f.Kind = classified.Kind
		}
	}
	if !c.policy(f) {
		c.logger.InfoContext(ctx, "authorization failure left session intact",
			"status", f.Status, "kind", f.Kind, "path", f.Path)
		c.emit(f, "ignored")
		return
	}

	// Step 1 runs on every invocation.
	if c.storage != nil {
		if err := c.storage.Clear(); err != nil {
			c.logger.WarnContext(ctx, "clear token storage failed", "error", err)
		}
	}
	c.emit(f, "cleared")

	// Step 2: no notice or redirect while already on the login page.
	if c.onLoginPage() {
		c.emit(f, "suppressed")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil || c.navigating {
		c.emit(f, "coalesced")
		return
	}

	// Steps 3 and 4 run once per episode.
	if c.notifier != nil && !c.notifier.Notify(ctx, c.notice) {
		c.logger.DebugContext(ctx, "session-expired notice coalesced by notifier", "key", c.notice.DedupeKey)
	}
	c.done = make(chan struct{})
	c.pending = time.AfterFunc(c.delay, c.redirect)
	c.emit(f, "notified")
	c.logger.InfoContext(ctx, "session invalidated; redirect scheduled",
		"status", f.Status, "kind", f.Kind, "path", f.Path, "delay", c.delay)
}

func (c *Coordinator) redirect() {
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.navigating = true
	c.mu.Unlock()

	defer c.finishRedirect()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic during login redirect", "panic", r)
		}
	}()
	if c.navigator != nil && !c.onLoginPage() {
		c.navigator.Navigate(c.loginPath)
	}
}

func (c *Coordinator) finishRedirect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.navigating = false
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
}

// Pending reports whether a redirect is scheduled or still navigating.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil || c.navigating
}

// Stop cancels a scheduled redirect. Call it when the owning scope is torn down.
// A navigation already under way is not interrupted.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return
	}
	c.pending.Stop()
	c.pending = nil
	close(c.done)
	c.done = nil
}

// Wait blocks until a scheduled redirect has finished navigating or been
// stopped, or ctx ends.
func (c *Coordinator) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) onLoginPage() bool {
	if c.navigator == nil {
		return false
	}
	return samePath(c.navigator.Location(), c.loginPath)
}

func samePath(location, target string) bool {
	p := location
	if u, err := url.Parse(location); err == nil {
		p = u.Path
	}
	norm := func(s string) string {
		s = strings.TrimRight(s, "/")
		if s == "" {
			return "/"
		}
		return s
	}
	return norm(p) == norm(target)
}

func (c *Coordinator) emit(f Failure, stage string) {
	metrics.EmitInvalidation(c.metrics, metrics.InvalidationMetric{Kind: string(f.Kind), Stage: stage})
}
