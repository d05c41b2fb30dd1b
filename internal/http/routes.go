package httpx

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"time"

	portal "github.com/vibolsen/campus-portal"
	"github.com/vibolsen/campus-portal/internal/gateway/serverfetch"
)

// Sessions is what the router needs from the session service.
type Sessions interface {
	SessionIssuer
	SessionResolver
}

// RouterConfig holds everything the HTTP router needs.
type RouterConfig struct {
	Sessions Sessions             // Required
	Fetcher  *serverfetch.Fetcher // Required
	Events   AuthEventLister      // Optional: enables GET /auth/events

	Cookies       CookieNames
	CookieDomain  string
	LoginPath     string
	ExpiredNotice string
	ToastDuration time.Duration
	CSRFMaxAge    time.Duration

	// HealthChecks are pinged by /healthz.
	HealthChecks map[string]Pinger

	// TemplateFS overrides where templates are loaded from.
	TemplateFS fs.FS
	IsDev      bool // templates and static files from disk
	Logger     *slog.Logger
}

// NewRouter creates the portal router wrapped in the standard middleware chain.
func NewRouter(cfg RouterConfig) (http.Handler, error) {
	if cfg.Sessions == nil || cfg.Fetcher == nil {
		return nil, errors.New("sessions and fetcher are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.ExpiredNotice == "" {
		cfg.ExpiredNotice = DefaultExpiredNotice
	}

	templateFS, err := templateSource(cfg)
	if err != nil {
		return nil, err
	}
	renderer, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: templateFS, Logger: logger})
	if err != nil {
		return nil, err
	}

	auth := &AuthHandlers{
		Sessions:      cfg.Sessions,
		Renderer:      renderer,
		Events:        cfg.Events,
		Cookies:       cfg.Cookies,
		CookieDomain:  cfg.CookieDomain,
		LoginPath:     cfg.LoginPath,
		ExpiredNotice: cfg.ExpiredNotice,
		ToastDuration: cfg.ToastDuration,
		Logger:        logger.With("component", "auth_handlers"),
	}
	pages := &PortalHandlers{
		Fetcher:   cfg.Fetcher,
		Renderer:  renderer,
		LoginPath: cfg.LoginPath,
		Logger:    logger.With("component", "portal_handlers"),
	}

	mux := http.NewServeMux()
	health := &HealthHandler{Checks: cfg.HealthChecks}
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)
	mux.Handle("GET /static/", staticHandler(cfg.IsDev))

	mux.HandleFunc("GET "+cfg.LoginPath, auth.LoginPage)
	mux.HandleFunc("POST "+cfg.LoginPath, auth.Login)
	mux.HandleFunc("POST /logout", auth.Logout)
	mux.HandleFunc("GET /auth/status", auth.Status)
	mux.HandleFunc("GET /auth/events", auth.EventsList)

	requireSession := RequireSession(cfg.LoginPath, Toast{
		Message:    cfg.ExpiredNotice,
		Severity:   "warning",
		DurationMs: cfg.ToastDuration.Milliseconds(),
	})
	mux.HandleFunc("GET /{$}", pages.Home)
	for _, portalPath := range []string{"/admin", "/teacher", "/student", "/staff", "/study-office"} {
		mux.Handle("GET "+portalPath, requireSession(http.HandlerFunc(pages.Dashboard)))
	}
	mux.Handle("GET /courses", requireSession(http.HandlerFunc(pages.Courses)))
	mux.Handle("GET /exams/{id}", requireSession(http.HandlerFunc(pages.Exam)))
	mux.HandleFunc("/", pages.NotFound)

	var h http.Handler = mux
	h = CSRFProtection(CSRFConfig{CookieDomain: cfg.CookieDomain, MaxAge: cfg.CSRFMaxAge})(h)
	h = SessionArtifact(cfg.Cookies.Session, cfg.Sessions)(h)
	h = BrowserDetection()(h)
	h = Logging(logger.With("component", "http"))(h)
	h = RequestID()(h)
	h = Recover(logger)(h)
	return h, nil
}

func templateSource(cfg RouterConfig) (fs.FS, error) {
	switch {
	case cfg.TemplateFS != nil:
		return cfg.TemplateFS, nil
	case cfg.IsDev:
		return os.DirFS(TemplatePathFromRoot), nil
	default:
		return fs.Sub(portal.TemplateFS, TemplatePathFromRoot)
	}
}

// staticHandler serves /static/* from disk in dev mode and from the embedded FS otherwise.
func staticHandler(isDev bool) http.Handler {
	if isDev {
		return staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	}
	staticSub, err := fs.Sub(portal.StaticFS, "web/static")
	if err != nil {
		return staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	}
	return staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
}

var hashedFilePattern = regexp.MustCompile(`\.[a-f0-9]{8}\.(?:js|css)(?:\.map)?$`)

// staticWithCacheHeaders caches content-hashed assets for a year and nothing else.
func staticWithCacheHeaders(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hashedFilePattern.MatchString(r.URL.Path) {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "no-cache")
		}
		handler.ServeHTTP(w, r)
	})
}
