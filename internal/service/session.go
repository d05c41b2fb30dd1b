package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
	apperrors "github.com/vibolsen/campus-portal/internal/errors"
	"github.com/vibolsen/campus-portal/internal/observability/metrics"
	"github.com/vibolsen/campus-portal/internal/observability/statsd"
	"github.com/vibolsen/campus-portal/internal/ports"
)

const defaultSessionTTL = 24 * time.Hour

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Authenticator ports.Authenticator
	Codec         ports.SessionCodec
	Principals    *PrincipalStore
	Revocations   ports.RevocationStore
	// Events is optional; nil disables the audit trail.
	Events  ports.AuthEventRecorder
	Metrics statsd.Sink
	TTL     time.Duration
	Logger  *slog.Logger
	Now     func() time.Time
}

// SessionService issues and revokes session artifacts around the credentials exchange.
type SessionService struct {
	authn       ports.Authenticator
	codec       ports.SessionCodec
	principals  *PrincipalStore
	revocations ports.RevocationStore
	events      ports.AuthEventRecorder
	metrics     statsd.Sink
	ttl         time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewSessionService constructs a new SessionService.
func NewSessionService(opts SessionServiceOptions) *SessionService {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sink := opts.Metrics
	if sink == nil {
		sink = statsd.Discard
	}
	principals := opts.Principals
	if principals == nil {
		principals = NewPrincipalStore(PrincipalStoreOptions{
			Codec:       opts.Codec,
			Revocations: opts.Revocations,
			Logger:      logger,
			Now:         now,
		})
	}
	return &SessionService{
		authn:       opts.Authenticator,
		codec:       opts.Codec,
		principals:  principals,
		revocations: opts.Revocations,
		events:      opts.Events,
		metrics:     sink,
		ttl:         ttl,
		logger:      logger.With("component", "session_service"),
		now:         now,
	}
}

// LoginResult contains the issued session and its signed artifact.
type LoginResult struct {
	Session  domainauth.Session
	Artifact string
}

// TTL returns the lifetime of issued sessions.
func (s *SessionService) TTL() time.Duration { return s.ttl }

// Login exchanges creds for a principal and issues a signed session artifact.
// A rejected exchange returns a credentials_rejected error and issues nothing.
func (s *SessionService) Login(ctx context.Context, creds domainauth.Credentials) (*LoginResult, error) {
	start := s.now()
	if !creds.Complete() {
		metrics.EmitLogin(s.metrics, metrics.LoginMetric{Result: metrics.ResultRejected})
		return nil, apperrors.ValidationField("email", "Email and password are required.")
	}

	principal, ok := s.authn.Authenticate(ctx, creds)
	if !ok {
		metrics.EmitLogin(s.metrics, metrics.LoginMetric{Result: metrics.ResultRejected, Duration: s.now().Sub(start)})
		s.record(ctx, domainauth.Event{Kind: domainauth.EventLoginRejected, Email: creds.Email})
		return nil, apperrors.CredentialsRejected("Invalid email or password.")
	}

	issued := s.now()
	sess := domainauth.Session{
		ID:        uuid.NewString(),
		Principal: principal,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(s.ttl),
	}
	artifact, err := s.codec.Encode(sess)
	if err != nil {
		metrics.EmitLogin(s.metrics, metrics.LoginMetric{Result: metrics.ResultError, Err: err})
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "issue session")
	}

	metrics.EmitLogin(s.metrics, metrics.LoginMetric{
		Result:   metrics.ResultSuccess,
		Role:     string(principal.Role),
		Duration: s.now().Sub(start),
	})
	s.record(ctx, domainauth.Event{
		Kind:      domainauth.EventLogin,
		SessionID: sess.ID,
		UserID:    principal.ID,
		Role:      principal.Role,
		Email:     principal.Email,
	})
	s.logger.InfoContext(ctx, "session issued", "session_id", sess.ID, "user_id", principal.ID, "role", principal.Role)
	return &LoginResult{Session: sess, Artifact: artifact}, nil
}

// Current returns the session carried by artifact, if it is still valid.
func (s *SessionService) Current(ctx context.Context, artifact string) (domainauth.Session, bool) {
	return s.principals.Session(ctx, artifact)
}

// Logout revokes the artifact's session id until it would have expired.
// An empty or already invalid artifact is a no-op.
func (s *SessionService) Logout(ctx context.Context, artifact string) error {
	sess, ok := s.principals.Session(ctx, artifact)
	if !ok {
		metrics.EmitLogout(s.metrics, metrics.ResultNoop)
		return nil
	}
	if s.revocations != nil {
		if err := s.revocations.Revoke(ctx, sess.ID, sess.ExpiresAt); err != nil {
			metrics.EmitLogout(s.metrics, metrics.ResultError)
			return fmt.Errorf("revoke session: %w", err)
		}
	}
	metrics.EmitLogout(s.metrics, metrics.ResultSuccess)
	s.record(ctx, domainauth.Event{
		Kind:      domainauth.EventLogout,
		SessionID: sess.ID,
		UserID:    sess.Principal.ID,
		Role:      sess.Principal.Role,
		Email:     sess.Principal.Email,
	})
	return nil
}

func (s *SessionService) record(ctx context.Context, ev domainauth.Event) {
	if s.events == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.CreatedAt = s.now()
	if err := s.events.Record(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "record auth event failed", "error", err, "kind", ev.Kind)
	}
}
