// Package notify shows transient user-visible notifications.
//
// A Center coalesces notifications by dedupe key: while a notification with a
// given key is still visible, another one with the same key is dropped.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/vibolsen/campus-portal/internal/ports"
)

const defaultDuration = 4 * time.Second

// Renderer displays a notification. It is called outside the Center's lock.
type Renderer func(ctx context.Context, n ports.Notification)

// Options configures a Center.
type Options struct {
	Render Renderer
	// DefaultDuration applies to notifications without their own Duration.
	DefaultDuration time.Duration
	Now             func() time.Time
	Logger          *slog.Logger
}

// Center implements ports.Notifier.
type Center struct {
	render          Renderer
	defaultDuration time.Duration
	now             func() time.Time
	logger          *slog.Logger

	mu      sync.Mutex
	visible map[string]entry
}

type entry struct {
	n     ports.Notification
	until time.Time
}

var _ ports.Notifier = (*Center)(nil)

// NewCenter builds a Center. A nil Render only tracks visibility.
func NewCenter(opts Options) *Center {
	d := opts.DefaultDuration
	if d <= 0 {
		d = defaultDuration
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Center{
		render:          opts.Render,
		defaultDuration: d,
		now:             now,
		logger:          logger.With("component", "notify"),
		visible:         make(map[string]entry),
	}
}

// Notify shows n unless a notification with the same DedupeKey is still visible.
// Notifications without a key are never coalesced.
func (c *Center) Notify(ctx context.Context, n ports.Notification) bool {
	if n.Duration <= 0 {
		n.Duration = c.defaultDuration
	}
	if n.Severity == "" {
		n.Severity = ports.SeverityInfo
	}

	c.mu.Lock()
	now := c.now()
	c.sweepLocked(now)
	if n.DedupeKey != "" {
		if _, ok := c.visible[n.DedupeKey]; ok {
			c.mu.Unlock()
			c.logger.DebugContext(ctx, "notification coalesced", "key", n.DedupeKey)
			return false
		}
		c.visible[n.DedupeKey] = entry{n: n, until: now.Add(n.Duration)}
	}
	c.mu.Unlock()

	if c.render != nil {
		c.safeRender(ctx, n)
	}
	return true
}

// Dismiss hides the notification with key early.
func (c *Center) Dismiss(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.visible, key)
}

// Visible returns the notifications currently on screen, oldest expiry first.
func (c *Center) Visible() []ports.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked(c.now())
	entries := make([]entry, 0, len(c.visible))
	for _, e := range c.visible {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].until.Before(entries[j].until) })
	out := make([]ports.Notification, len(entries))
	for i, e := range entries {
		out[i] = e.n
	}
	return out
}

func (c *Center) sweepLocked(now time.Time) {
	for k, e := range c.visible {
		if !now.Before(e.until) {
			delete(c.visible, k)
		}
	}
}

func (c *Center) safeRender(ctx context.Context, n ports.Notification) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorContext(ctx, "notification renderer panicked", "panic", r)
		}
	}()
	c.render(ctx, n)
}

// WriterRenderer prints one line per notification, e.g. to a terminal's stderr.
func WriterRenderer(w io.Writer) Renderer {
	var mu sync.Mutex
	return func(_ context.Context, n ports.Notification) {
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintf(w, "[%s] %s\n", n.Severity, n.Message)
	}
}
