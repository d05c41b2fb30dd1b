package service

import (
	"context"
	"log/slog"
	"time"

	domainauth "github.com/vibolsen/campus-portal/internal/domain/auth"
	"github.com/vibolsen/campus-portal/internal/gateway"
	"github.com/vibolsen/campus-portal/internal/ports"
)

// PrincipalStoreOptions groups dependencies for PrincipalStore.
type PrincipalStoreOptions struct {
	Codec       ports.SessionCodec
	Revocations ports.RevocationStore
	Logger      *slog.Logger
	Now         func() time.Time
}

// PrincipalStore yields the principal of a server-rendered request from its signed session artifact.
// It copies claims unchanged; it only checks the signature, expiry, revocation and the
// role/token pairing.
type PrincipalStore struct {
	codec       ports.SessionCodec
	revocations ports.RevocationStore
	logger      *slog.Logger
	now         func() time.Time
}

var _ ports.PrincipalSource = (*PrincipalStore)(nil)

// NewPrincipalStore constructs a PrincipalStore.
func NewPrincipalStore(opts PrincipalStoreOptions) *PrincipalStore {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &PrincipalStore{
		codec:       opts.Codec,
		revocations: opts.Revocations,
		logger:      logger.With("component", "principal_store"),
		now:         now,
	}
}

// CurrentPrincipal resolves the principal from the artifact carried by ctx.
func (s *PrincipalStore) CurrentPrincipal(ctx context.Context) (domainauth.Principal, bool) {
	artifact, ok := gateway.ArtifactFrom(ctx)
	if !ok {
		return domainauth.Principal{}, false
	}
	return s.Derive(ctx, artifact)
}

// Derive resolves the principal carried by an explicit artifact.
func (s *PrincipalStore) Derive(ctx context.Context, artifact string) (domainauth.Principal, bool) {
	sess, ok := s.Session(ctx, artifact)
	if !ok {
		return domainauth.Principal{}, false
	}
	return sess.Principal, true
}

// Session decodes and validates artifact. A principal that breaks the role/token
// pairing, an expired artifact, and a revoked artifact all yield false.
func (s *PrincipalStore) Session(ctx context.Context, artifact string) (domainauth.Session, bool) {
	if artifact == "" || s.codec == nil {
		return domainauth.Session{}, false
	}
	sess, err := s.codec.Decode(artifact)
	if err != nil {
		s.logger.DebugContext(ctx, "session artifact rejected", "error", err)
		return domainauth.Session{}, false
	}
	if sess.Expired(s.now()) || !sess.Principal.Valid() {
		return domainauth.Session{}, false
	}
	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, sess.ID)
		if err != nil {
			// Fail closed: an unknown revocation state does not authorize.
			s.logger.WarnContext(ctx, "revocation lookup failed", "error", err, "session_id", sess.ID)
			return domainauth.Session{}, false
		}
		if revoked {
			return domainauth.Session{}, false
		}
	}
	return sess, true
}
