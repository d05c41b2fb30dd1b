package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vibolsen/campus-portal/internal/data/database"
	"github.com/vibolsen/campus-portal/internal/data/pgxutil"
	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
	apperrors "github.com/vibolsen/campus-portal/internal/errors"
)

const (
	defaultEventListLimit = 50
	maxEventListLimit     = 500
	defaultPruneBatch     = 1000
)

var authEventColumns = []string{"id", "kind", "session_id", "user_id", "role", "email", "created_at"}

// AuthEventRepo persists the login audit trail.
type AuthEventRepo struct {
	DB  *sql.DB
	now func() time.Time
}

// NewAuthEventRepo creates an AuthEventRepo on db.
func NewAuthEventRepo(db *sql.DB) *AuthEventRepo {
	return &AuthEventRepo{DB: db, now: time.Now}
}

// Record inserts ev. Missing ID and CreatedAt are filled in.
func (r *AuthEventRepo) Record(ctx context.Context, ev domainauth.Event) error {
	if ev.Kind == "" {
		return apperrors.ValidationField("kind", "event kind is required")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = r.now()
	}

	err := pgxutil.WithConn(ctx, r.DB, func(c *pgx.Conn) error {
		_, execErr := c.Exec(ctx, `
			INSERT INTO auth_events (id, kind, session_id, user_id, role, email, created_at)
			VALUES (@id, @kind, @session_id, @user_id, @role, @email, @created_at)`,
			pgx.NamedArgs{
				"id":         ev.ID,
				"kind":       string(ev.Kind),
				"session_id": ev.SessionID,
				"user_id":    ev.UserID,
				"role":       string(ev.Role),
				"email":      strings.ToLower(strings.TrimSpace(ev.Email)),
				"created_at": ev.CreatedAt.UTC(),
			})
		return execErr
	})
	if err != nil {
		return fmt.Errorf("record auth event: %w", apperrors.MapDBError(err))
	}
	return nil
}

// AuthEventListOptions filters List. Zero values mean "any".
type AuthEventListOptions struct {
	UserID string
	Kind   domainauth.EventKind
	Before time.Time
	Limit  int
}

// List returns matching events, newest first.
func (r *AuthEventRepo) List(ctx context.Context, opts AuthEventListOptions) ([]domainauth.Event, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultEventListLimit
	}
	if limit > maxEventListLimit {
		limit = maxEventListLimit
	}

	query, args := database.NewListQuery("auth_events",
		database.WithColumns(authEventColumns...),
		database.WithCondition(opts.UserID != "", database.Where("user_id", database.Equal, opts.UserID)),
		database.WithCondition(opts.Kind != "", database.Where("kind", database.Equal, string(opts.Kind))),
		database.WithCondition(!opts.Before.IsZero(), database.Where("created_at", database.LessThan, opts.Before.UTC())),
		database.WithOrderBy("created_at", true),
		database.WithLimit(limit),
	).Build()

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list auth events: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []domainauth.Event
	for rows.Next() {
		var (
			ev         domainauth.Event
			kind, role string
		)
		if err := rows.Scan(&ev.ID, &kind, &ev.SessionID, &ev.UserID, &role, &ev.Email, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan auth event: %w", err)
		}
		ev.Kind = domainauth.EventKind(kind)
		ev.Role = domainauth.Role(role)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auth events: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// DeleteOlderThan removes up to batch events created before cutoff.
func (r *AuthEventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	if cutoff.IsZero() {
		return 0, errors.New("cutoff is required")
	}
	if batch <= 0 {
		batch = defaultPruneBatch
	}
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM auth_events
		WHERE id IN (
			SELECT id FROM auth_events WHERE created_at < $1 ORDER BY created_at LIMIT $2
		)`, cutoff.UTC(), batch)
	if err != nil {
		return 0, fmt.Errorf("prune auth events: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune auth events: rows affected: %w", err)
	}
	return n, nil
}
