package config

import (
	"strings"
	"time"
)

// Default JMESPath expressions for the login and error payloads.
const (
	DefaultUserPath  = "user"
	DefaultTokenPath = "token || accessToken || access_token"
	DefaultErrorPath = "error || message"
)

// BackendConfig describes the remote REST API the portal is a view over.
type BackendConfig struct {
	// BaseURL is the API origin, e.g. "https://api.example.edu".
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:5000"`

	// LoginPath is the credentials exchange endpoint.
	LoginPath string `env:"LOGIN_PATH" envDefault:"/api/auth/login"`

	// Timeout for outbound calls. Zero leaves timing to the transport.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"0s"`

	// UserPath and TokenPath are JMESPath expressions locating the user record
	// and the issued token in the login response.
	UserPath  string `env:"USER_PATH"`
	TokenPath string `env:"TOKEN_PATH"`

	// ErrorPath locates the human-readable message in an error payload.
	ErrorPath string `env:"ERROR_PATH"`
}

// Sanitize applies guardrails to backend configuration values.
func (b *BackendConfig) Sanitize() {
	b.BaseURL = strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
	if b.LoginPath = strings.TrimSpace(b.LoginPath); b.LoginPath == "" {
		b.LoginPath = "/api/auth/login"
	}
	if b.Timeout < 0 {
		b.Timeout = 0
	}
	if strings.TrimSpace(b.UserPath) == "" {
		b.UserPath = DefaultUserPath
	}
	if strings.TrimSpace(b.TokenPath) == "" {
		b.TokenPath = DefaultTokenPath
	}
	if strings.TrimSpace(b.ErrorPath) == "" {
		b.ErrorPath = DefaultErrorPath
	}
}

// LoginURL returns the absolute login endpoint URL.
func (b BackendConfig) LoginURL() string {
	return b.BaseURL + b.LoginPath
}
