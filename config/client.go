package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ClientConfig configures the interactive portalctl client.
type ClientConfig struct {
	// Home is the directory holding the persisted token and profile.
	// Defaults to <user config dir>/campus-portal.
	Home string `env:"HOME"`

	// PortalURL is the portal origin the client presents as its own location.
	PortalURL string `env:"URL" envDefault:"http://localhost:8080"`

	// LoginPath is where the client navigates after its session is invalidated.
	LoginPath string `env:"LOGIN_PATH" envDefault:"/login"`

	// RedirectDelay is how long the session-expired notice is shown before navigating.
	RedirectDelay time.Duration `env:"REDIRECT_DELAY" envDefault:"2s"`

	// NoticeMessage and NoticeKey describe the session-expired notification.
	// Notifications sharing a key are shown once while visible.
	NoticeMessage string `env:"NOTICE_MESSAGE" envDefault:"Your session has expired. Please log in again."`
	NoticeKey     string `env:"NOTICE_KEY"     envDefault:"session-expired"`

	// TokenTTL bounds the stored token cookie.
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// ForbiddenInvalidates treats 403 like 401. When false a 403 leaves the session intact.
	ForbiddenInvalidates bool `env:"FORBIDDEN_INVALIDATES" envDefault:"true"`
}

// Sanitize resolves the client home directory.
func (c *ClientConfig) Sanitize() {
	c.Home = strings.TrimSpace(c.Home)
	if c.Home == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			c.Home = filepath.Join(dir, "campus-portal")
		} else {
			c.Home = filepath.Join(os.TempDir(), "campus-portal")
		}
	}
	c.PortalURL = strings.TrimRight(strings.TrimSpace(c.PortalURL), "/")
	c.LoginPath = strings.TrimSpace(c.LoginPath)
	if c.LoginPath == "" || !strings.HasPrefix(c.LoginPath, "/") {
		c.LoginPath = defaultLoginPath
	}
	if c.RedirectDelay < 0 {
		c.RedirectDelay = 0
	}
	if strings.TrimSpace(c.NoticeMessage) == "" {
		c.NoticeMessage = defaultNoticeMessage
	}
	if strings.TrimSpace(c.NoticeKey) == "" {
		c.NoticeKey = defaultNoticeKey
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 24 * time.Hour
	}
}

// CLIConfig is the subset of configuration portalctl needs. It never requires
// the server's session secret.
type CLIConfig struct {
	IsDev         bool          `env:"DEV" envDefault:"false"`
	Backend       BackendConfig `envPrefix:"API_"`
	Client        ClientConfig  `envPrefix:"PORTALCTL_"`
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to the client configuration.
func (c *CLIConfig) Sanitize() {
	c.Backend.Sanitize()
	c.Client.Sanitize()
	c.Observability.Sanitize()
}
