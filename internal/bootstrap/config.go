package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/vibolsen/campus-portal/config"
)

// InitLogger initializes the structured logger. Development mode logs debug
// records as text; everything else is JSON at info level.
func InitLogger(isDev bool) *slog.Logger {
	logger := newLogger(os.Stdout, isDev)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, isDev bool) *slog.Logger {
	if isDev {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// LoadConfig loads configuration from environment variables, reading .env first when present.
func LoadConfig() (config.AppConfig, error) {
	if err := loadDotEnv(); err != nil {
		return config.AppConfig{}, err
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// LoadCLIConfig loads the portalctl configuration the same way LoadConfig does.
func LoadCLIConfig() (config.CLIConfig, error) {
	if err := loadDotEnv(); err != nil {
		return config.CLIConfig{}, err
	}

	var cfg config.CLIConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// loadDotEnv reads .env from the working directory; a missing file is not an error.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return fmt.Errorf("load .env file: %w", err)
		}
	}
	return nil
}
