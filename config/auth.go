package config

import (
	"strings"
	"time"
)

const (
	defaultLoginPath     = "/login"
	defaultNoticeKey     = "session-expired"
	defaultNoticeMessage = "Your session has expired. Please log in again."
	defaultNoticeTime    = 4 * time.Second
)

// AuthConfig groups session issuance and invalidation configuration.
type AuthConfig struct {
	// SessionSecret signs the server-side session cookie (HS256).
	SessionSecret string `env:"SESSION_SECRET,required,notEmpty"`

	// SessionCookie is the HttpOnly cookie carrying the signed session artifact.
	SessionCookie string `env:"SESSION_COOKIE" envDefault:"portal_session"`

	// TokenCookie is the client-readable cookie carrying the bearer token.
	TokenCookie string `env:"TOKEN_COOKIE" envDefault:"token"`

	// SessionTTL bounds the lifetime of both cookies.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// LoginPath is the login destination used for redirects.
	LoginPath string `env:"LOGIN_PATH" envDefault:"/login"`

	// NoticeMessage is shown on the login page and as a toast when a stale
	// session cookie is bounced to login. NoticeDuration is the toast lifetime.
	NoticeMessage  string        `env:"NOTICE_MESSAGE"  envDefault:"Your session has expired. Please log in again."`
	NoticeDuration time.Duration `env:"NOTICE_DURATION" envDefault:"4s"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	a.LoginPath = strings.TrimSpace(a.LoginPath)
	if a.LoginPath == "" || !strings.HasPrefix(a.LoginPath, "/") {
		a.LoginPath = defaultLoginPath
	}
	if a.SessionTTL < time.Minute {
		a.SessionTTL = time.Minute
	}
	if a.NoticeDuration <= 0 {
		a.NoticeDuration = defaultNoticeTime
	}
	if strings.TrimSpace(a.NoticeMessage) == "" {
		a.NoticeMessage = defaultNoticeMessage
	}
	if a.SessionCookie == "" {
		a.SessionCookie = "portal_session"
	}
	if a.TokenCookie == "" {
		a.TokenCookie = "token"
	}
}
