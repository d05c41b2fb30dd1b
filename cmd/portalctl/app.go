package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/vibolsen/campus-portal/config"
	"github.com/vibolsen/campus-portal/internal/bootstrap"
	"github.com/vibolsen/campus-portal/internal/gateway/clientfetch"
	"github.com/vibolsen/campus-portal/internal/gateway/clientstore"
	"github.com/vibolsen/campus-portal/internal/gateway/coordinator"
	"github.com/vibolsen/campus-portal/internal/notify"
	"github.com/vibolsen/campus-portal/internal/observability/statsd"
	"github.com/vibolsen/campus-portal/internal/ports"
)

// cliApp holds the client-side components for one invocation.
type cliApp struct {
	streams
	verbose bool

	cfg         config.CLIConfig
	logger      *slog.Logger
	metrics     *statsd.Client
	store       *clientstore.Store
	notices     *notify.Center
	navigator   *terminalNavigator
	coordinator *coordinator.Coordinator
	client      *clientfetch.Client
}

func (a *cliApp) open(_ context.Context) error {
	cfg, err := bootstrap.LoadCLIConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.err, &slog.HandlerOptions{Level: level}))

	a.metrics, err = statsd.NewClient(statsd.Config{
		Enabled:    cfg.Observability.Metrics.IsEnabled(),
		Address:    cfg.Observability.Metrics.StatsdAddress,
		Prefix:     cfg.Observability.Metrics.Prefix,
		Logger:     a.logger,
		GlobalTags: map[string]string{"client": "portalctl"},
	})
	if err != nil {
		return err
	}

	a.store, err = clientstore.Open(clientstore.Options{
		Dir:       cfg.Client.Home,
		PortalURL: cfg.Client.PortalURL,
		TTL:       cfg.Client.TokenTTL,
	})
	if err != nil {
		return err
	}

	a.notices = notify.NewCenter(notify.Options{
		Render: notify.WriterRenderer(a.err),
		Logger: a.logger,
	})
	a.navigator = newTerminalNavigator(a.err, cfg.Client.PortalURL)

	policy := coordinator.InvalidateAll
	if !cfg.Client.ForbiddenInvalidates {
		policy = coordinator.InvalidateUnauthenticatedOnly
	}
	a.coordinator = coordinator.New(coordinator.Config{
		Storage:       a.store,
		Notifier:      a.notices,
		Navigator:     a.navigator,
		LoginPath:     cfg.Client.LoginPath,
		RedirectDelay: cfg.Client.RedirectDelay,
		Notice: ports.Notification{
			Message:   cfg.Client.NoticeMessage,
			DedupeKey: cfg.Client.NoticeKey,
			Severity:  ports.SeverityWarning,
		},
		Policy:  policy,
		Metrics: a.metrics,
		Logger:  a.logger,
	})

	a.client, err = clientfetch.New(clientfetch.Config{
		BaseURL:   cfg.Backend.BaseURL,
		Storage:   a.store,
		Failures:  a.coordinator,
		ErrorPath: cfg.Backend.ErrorPath,
		Timeout:   cfg.Backend.Timeout,
		Jar:       a.store.Jar(),
		Metrics:   a.metrics,
		Logger:    a.logger,
	})
	return err
}

// close lets a scheduled login redirect finish before the process exits.
// An interrupted wait cancels the redirect instead.
func (a *cliApp) close(ctx context.Context) error {
	var errs []error
	if a.coordinator != nil && a.coordinator.Pending() {
		if err := a.coordinator.Wait(ctx); err != nil {
			a.coordinator.Stop()
			if !errors.Is(err, context.Canceled) {
				errs = append(errs, err)
			}
		}
	}
	if a.metrics != nil {
		if err := a.metrics.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close statsd: %w", err))
		}
	}
	return errors.Join(errs...)
}

// terminalNavigator stands in for the browser location. Navigating prints
// the destination instead of loading it.
type terminalNavigator struct {
	mu       sync.Mutex
	w        io.Writer
	origin   string
	location string
}

var _ ports.Navigator = (*terminalNavigator)(nil)

func newTerminalNavigator(w io.Writer, origin string) *terminalNavigator {
	return &terminalNavigator{w: w, origin: origin, location: origin + "/"}
}

func (n *terminalNavigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

func (n *terminalNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.location = n.origin + path
	_, _ = fmt.Fprintf(n.w, "Signed out. Open %s or run \"portalctl login\" to continue.\n", n.location)
}
