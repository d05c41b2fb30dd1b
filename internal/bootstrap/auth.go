package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vibolsen/campus-portal/config"
	"github.com/vibolsen/campus-portal/internal/adapters/backend"
	"github.com/vibolsen/campus-portal/internal/adapters/jwtsession"
	redisadapter "github.com/vibolsen/campus-portal/internal/adapters/redis"
	"github.com/vibolsen/campus-portal/internal/gateway/serverfetch"
	"github.com/vibolsen/campus-portal/internal/observability/statsd"
	"github.com/vibolsen/campus-portal/internal/ports"
	"github.com/vibolsen/campus-portal/internal/service"
)

// AuthConfig contains what the session stack is built from.
type AuthConfig struct {
	Auth    config.AuthConfig
	Backend config.BackendConfig
	// Revocations backs the logout list; nil selects the in-process store.
	Revocations *RevocationRedis
	// Events is optional; nil disables the login audit trail.
	Events     ports.AuthEventRecorder
	HTTPClient *http.Client
	Metrics    statsd.Sink
	Logger     *slog.Logger
}

// AuthStack is the wired session machinery shared by the router and the fetcher.
type AuthStack struct {
	Sessions   *service.SessionService
	Principals *service.PrincipalStore
	Fetcher    *serverfetch.Fetcher
}

// BuildAuthStack wires the authenticator, session codec, revocation list and server-side fetcher.
func BuildAuthStack(cfg AuthConfig) (*AuthStack, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	codec, err := jwtsession.NewCodec(cfg.Auth.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("session codec: %w", err)
	}

	authn, err := backend.NewAuthenticator(backend.Config{
		LoginURL:  cfg.Backend.LoginURL(),
		UserPath:  cfg.Backend.UserPath,
		TokenPath: cfg.Backend.TokenPath,
		Timeout:   cfg.Backend.Timeout,
		Client:    cfg.HTTPClient,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("backend authenticator: %w", err)
	}

	revocations := buildRevocationStore(cfg, logger)
	principals := service.NewPrincipalStore(service.PrincipalStoreOptions{
		Codec:       codec,
		Revocations: revocations,
		Logger:      logger,
	})
	sessions := service.NewSessionService(service.SessionServiceOptions{
		Authenticator: authn,
		Codec:         codec,
		Principals:    principals,
		Revocations:   revocations,
		Events:        cfg.Events,
		Metrics:       cfg.Metrics,
		TTL:           cfg.Auth.SessionTTL,
		Logger:        logger,
	})

	fetcher, err := serverfetch.New(serverfetch.Config{
		BaseURL:    cfg.Backend.BaseURL,
		Principals: principals,
		Timeout:    cfg.Backend.Timeout,
		Client:     cfg.HTTPClient,
		Metrics:    cfg.Metrics,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("server fetcher: %w", err)
	}

	return &AuthStack{Sessions: sessions, Principals: principals, Fetcher: fetcher}, nil
}

//nolint:ireturn // the store is picked at runtime
func buildRevocationStore(cfg AuthConfig, logger *slog.Logger) ports.RevocationStore {
	if cfg.Revocations == nil {
		logger.Warn("redis disabled: session revocations are kept in memory and lost on restart")
		return redisadapter.NewMemoryRevocationStore()
	}
	return cfg.Revocations.Store()
}

// sessionCookieMaxAge is the CSRF cookie lifetime, aligned to the session TTL.
func sessionCookieMaxAge(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 12 * time.Hour
	}
	return ttl
}
