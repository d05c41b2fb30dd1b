package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_SESSION_SECRET", "s3cret")
	t.Setenv("AUTH_SESSION_TTL", "2h")
	t.Setenv("AUTH_NOTICE_DURATION", "1500ms")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}

	want := AuthConfig{
		SessionSecret:  "s3cret",
		SessionCookie:  "portal_session",
		TokenCookie:    "token",
		SessionTTL:     2 * time.Hour,
		LoginPath:      "/login",
		NoticeMessage:  "Your session has expired. Please log in again.",
		NoticeDuration: 1500 * time.Millisecond,
	}
	if !reflect.DeepEqual(cfg.Auth, want) {
		t.Fatalf("unexpected auth config\nwant: %+v\n got: %+v", want, cfg.Auth)
	}
}

func TestAppConfig_SessionSecretRequired(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err == nil {
		t.Fatal("expected error when AUTH_SESSION_SECRET is missing")
	}
}

func TestAppConfig_ParseBackendEnv(t *testing.T) {
	t.Setenv("AUTH_SESSION_SECRET", "x")
	t.Setenv("API_BASE_URL", " https://api.example.edu/ ")
	t.Setenv("API_TIMEOUT", "5s")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	cfg.Sanitize()

	if cfg.Backend.BaseURL != "https://api.example.edu" {
		t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.LoginURL() != "https://api.example.edu/api/auth/login" {
		t.Errorf("LoginURL = %q", cfg.Backend.LoginURL())
	}
	if cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Backend.Timeout)
	}
	if cfg.Backend.TokenPath != DefaultTokenPath || cfg.Backend.UserPath != DefaultUserPath {
		t.Errorf("payload paths = %q, %q", cfg.Backend.UserPath, cfg.Backend.TokenPath)
	}
}

func TestBackendConfig_SanitizeKeepsDefaultTokenPath(t *testing.T) {
	cfg := BackendConfig{TokenPath: "   "}
	cfg.Sanitize()
	if cfg.TokenPath != "token || accessToken || access_token" {
		t.Errorf("TokenPath = %q", cfg.TokenPath)
	}
	if cfg.ErrorPath != DefaultErrorPath {
		t.Errorf("ErrorPath = %q", cfg.ErrorPath)
	}
}

func TestAuthConfig_Sanitize(t *testing.T) {
	tests := []struct {
		name string
		in   AuthConfig
		want func(t *testing.T, got AuthConfig)
	}{
		{
			name: "relative login path falls back",
			in:   AuthConfig{LoginPath: "login"},
			want: func(t *testing.T, got AuthConfig) {
				if got.LoginPath != "/login" {
					t.Errorf("LoginPath = %q", got.LoginPath)
				}
			},
		},
		{
			name: "short ttl is raised to a minute",
			in:   AuthConfig{LoginPath: "/signin", SessionTTL: time.Second},
			want: func(t *testing.T, got AuthConfig) {
				if got.SessionTTL != time.Minute {
					t.Errorf("SessionTTL = %v", got.SessionTTL)
				}
				if got.LoginPath != "/signin" {
					t.Errorf("LoginPath = %q", got.LoginPath)
				}
			},
		},
		{
			name: "empty notice fields get defaults",
			in:   AuthConfig{},
			want: func(t *testing.T, got AuthConfig) {
				if got.NoticeDuration != 4*time.Second || got.NoticeMessage == "" {
					t.Errorf("notice defaults not applied: %+v", got)
				}
				if got.SessionCookie != "portal_session" || got.TokenCookie != "token" {
					t.Errorf("cookie defaults not applied: %+v", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.in
			cfg.Sanitize()
			tt.want(t, cfg)
		})
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "  ", Prefix: ".app."}
	cfg.Sanitize()
	if cfg.IsEnabled() {
		t.Fatal("metrics should be disabled without an address")
	}
	if cfg.Prefix != "app" {
		t.Fatalf("Prefix = %q", cfg.Prefix)
	}
}

func TestClientConfig_SanitizeDefaultsHome(t *testing.T) {
	cfg := ClientConfig{PortalURL: "http://localhost:8080/"}
	cfg.Sanitize()
	if cfg.Home == "" {
		t.Fatal("expected home directory to be resolved")
	}
	if cfg.PortalURL != "http://localhost:8080" {
		t.Fatalf("PortalURL = %q", cfg.PortalURL)
	}
}

func TestCLIConfig_ParseWithoutSessionSecret(t *testing.T) {
	t.Setenv("PORTALCTL_URL", "https://portal.example.edu/")
	t.Setenv("PORTALCTL_FORBIDDEN_INVALIDATES", "false")
	t.Setenv("PORTALCTL_LOGIN_PATH", "signin")
	t.Setenv("API_BASE_URL", "https://api.example.edu/")

	var cfg CLIConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	cfg.Sanitize()

	if cfg.Client.PortalURL != "https://portal.example.edu" {
		t.Fatalf("PortalURL = %q", cfg.Client.PortalURL)
	}
	if cfg.Client.ForbiddenInvalidates {
		t.Fatal("expected 403 invalidation to be disabled")
	}
	if cfg.Client.LoginPath != "/login" {
		t.Fatalf("LoginPath = %q", cfg.Client.LoginPath)
	}
	if cfg.Client.RedirectDelay != 2*time.Second {
		t.Fatalf("RedirectDelay = %v", cfg.Client.RedirectDelay)
	}
	if cfg.Client.NoticeKey != "session-expired" {
		t.Fatalf("NoticeKey = %q", cfg.Client.NoticeKey)
	}
	if cfg.Backend.BaseURL != "https://api.example.edu" {
		t.Fatalf("BaseURL = %q", cfg.Backend.BaseURL)
	}
}
