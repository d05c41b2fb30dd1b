package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Session issuance and invalidation behavior
//   - backend.go: Remote REST API the portal consumes
//   - database.go: Login audit database and session revocation cache
//   - audit.go: Login audit retention
//   - http.go: HTTP server configuration
//   - client.go: Interactive client (portalctl) configuration
//   - observability.go: Metrics emission
type AppConfig struct {
	// IsDev controls development mode behavior (templates from disk, insecure cookies allowed).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Authentication and session configuration
	Auth AuthConfig `envPrefix:"AUTH_"`

	// Backend API configuration
	Backend BackendConfig `envPrefix:"API_"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Audit    AuditConfig `envPrefix:"AUDIT_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Interactive client configuration
	Client ClientConfig `envPrefix:"PORTALCTL_"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Auth.Sanitize()
	c.Backend.Sanitize()
	c.Audit.Sanitize()
	c.Client.Sanitize()
	c.Observability.Sanitize()

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
