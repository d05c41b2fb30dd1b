package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vibolsen/campus-portal/config"
	"github.com/vibolsen/campus-portal/internal/data"
	httpx "github.com/vibolsen/campus-portal/internal/http"
	"github.com/vibolsen/campus-portal/internal/observability/statsd"
	"github.com/vibolsen/campus-portal/internal/ports"
	"github.com/vibolsen/campus-portal/internal/service"
)

// App is the fully wired portal server.
type App struct {
	Config    config.AppConfig
	Handler   http.Handler
	Auth      *AuthStack
	Retention *service.RetentionService // nil when the audit trail is disabled

	db      *sql.DB
	redis   *RevocationRedis
	metrics *statsd.Client
	logger  *slog.Logger
}

// NewApp connects the optional infrastructure and wires every component.
func NewApp(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (app *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	app = &App{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	app.metrics, err = statsd.NewClient(statsd.Config{
		Enabled: cfg.Observability.Metrics.IsEnabled(),
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  cfg.Observability.Metrics.Prefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	health := map[string]httpx.Pinger{}

	var (
		events ports.AuthEventRecorder
		lister httpx.AuthEventLister
	)
	if cfg.Postgres.Enabled {
		if app.db, err = OpenAuditDB(ctx, cfg.Postgres, logger); err != nil {
			return nil, err
		}
		repo := data.NewAuthEventRepo(app.db)
		events, lister = repo, repo
		health["postgres"] = app.db
		app.Retention, err = service.NewRetentionService(service.RetentionServiceOptions{
			Repo:    repo,
			Config:  cfg.Audit,
			Logger:  logger,
			Metrics: app.metrics,
		})
		if err != nil {
			return nil, err
		}
	}

	if cfg.Redis.Enabled {
		if app.redis, err = ConnectRevocationRedis(ctx, cfg.Redis, logger); err != nil {
			return nil, err
		}
		health["redis"] = app.redis
	}

	app.Auth, err = BuildAuthStack(AuthConfig{
		Auth:        cfg.Auth,
		Backend:     cfg.Backend,
		Revocations: app.redis,
		Events:      events,
		Metrics:     app.metrics,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	app.Handler, err = httpx.NewRouter(httpx.RouterConfig{
		Sessions:      app.Auth.Sessions,
		Fetcher:       app.Auth.Fetcher,
		Events:        lister,
		Cookies:       httpx.CookieNames{Session: cfg.Auth.SessionCookie, Token: cfg.Auth.TokenCookie},
		CookieDomain:  cfg.HTTP.CookieDomain,
		LoginPath:     cfg.Auth.LoginPath,
		ExpiredNotice: cfg.Auth.NoticeMessage,
		ToastDuration: cfg.Auth.NoticeDuration,
		CSRFMaxAge:    sessionCookieMaxAge(cfg.Auth.SessionTTL),
		HealthChecks:  health,
		IsDev:         cfg.IsDev,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	return app, nil
}

// Run serves HTTP and runs the audit retention loop until ctx is canceled,
// then shuts the server down within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.Config.HTTP.Addr,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.Config.HTTP.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if a.Retention != nil {
		g.Go(func() error { return a.Retention.Run(gctx) })
	}
	return g.Wait()
}

// Close releases connections. It is safe to call more than once.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", "error", err)
		}
		a.db = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", "error", err)
		}
		a.redis = nil
	}
	if a.metrics != nil {
		if err := a.metrics.Close(); err != nil {
			a.logger.Warn("close statsd", "error", err)
		}
		a.metrics = nil
	}
}
