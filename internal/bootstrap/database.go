package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/vibolsen/campus-portal/config"
	"github.com/vibolsen/campus-portal/internal/migrate"
)

const (
	auditApplicationName = "campus-portal"
	auditMaxOpenConns    = 4
	auditMaxIdleConns    = 1
	auditConnMaxLifetime = 10 * time.Minute
	connectTimeout       = 5 * time.Second
)

// OpenAuditDB connects to the login audit database. The pool is small: the
// audit trail writes one row per login/logout and the retention loop prunes in
// batches. Migrations run here when cfg.RunMigrationsOnStart is set.
func OpenAuditDB(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	connCfg, err := pgx.ParseConfig(auditDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("audit database config: %w", err)
	}
	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(auditMaxOpenConns)
	db.SetMaxIdleConns(auditMaxIdleConns)
	db.SetConnMaxLifetime(auditConnMaxLifetime)

	fail := func(err error) (*sql.DB, error) {
		if closeErr := db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close audit database: %w", closeErr))
		}
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fail(fmt.Errorf("ping audit database: %w", err))
	}
	if cfg.RunMigrationsOnStart {
		if err := migrate.RunWithLogger(ctx, db, logger); err != nil {
			return fail(fmt.Errorf("run audit migrations: %w", err))
		}
	}

	logger.InfoContext(ctx, "audit database ready",
		"host", cfg.Host, "database", cfg.Name, "migrated", cfg.RunMigrationsOnStart)
	return db, nil
}

// auditDSN renders cfg as a postgres URL; credentials are escaped by url.URL.
func auditDSN(cfg config.DBConfig) string {
	q := url.Values{}
	q.Set("sslmode", cfg.SSLMode)
	q.Set("application_name", auditApplicationName)
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
